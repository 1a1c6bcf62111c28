package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/hlbcgo/config"
	"github.com/wudi/hlbcgo/opcode"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), config.CacheConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKey_StableForIdenticalInstructions(t *testing.T) {
	a := []opcode.Instruction{{Op: opcode.Int, Dst: 0, IntRef: 1}, {Op: opcode.Ret, A: 0}}
	b := []opcode.Instruction{{Op: opcode.Int, Dst: 0, IntRef: 1}, {Op: opcode.Ret, A: 0}}
	c := []opcode.Instruction{{Op: opcode.Int, Dst: 0, IntRef: 2}, {Op: opcode.Ret, A: 0}}

	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(c))
}

func TestGetPut_RoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	key := Key([]opcode.Instruction{{Op: opcode.Ret}})
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, key, "function f() {}"))
	rendered, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "function f() {}", rendered)

	require.NoError(t, c.Put(ctx, key, "function f() { return 1; }"))
	rendered, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "function f() { return 1; }", rendered, "Put overwrites the prior entry for the same key")
}

func TestSqlDriverName(t *testing.T) {
	cases := map[string]string{"": "sqlite", "sqlite": "sqlite", "mysql": "mysql", "postgres": "postgres"}
	for in, want := range cases {
		got, err := sqlDriverName(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := sqlDriverName("oracle")
	require.Error(t, err)
}

func TestQuery_RewritesPlaceholdersForPostgres(t *testing.T) {
	c := &Cache{driver: "postgres"}
	assert.Equal(t, "SELECT $1, $2", c.query("SELECT ?, ?"))

	sqliteCache := &Cache{driver: "sqlite"}
	assert.Equal(t, "SELECT ?, ?", sqliteCache.query("SELECT ?, ?"))
}
