package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/wudi/hlbcgo/decompiler"
)

var statsCommand = &cli.Command{
	Name:      "stats",
	Usage:     "Print size and table statistics for a bytecode module",
	ArgsUsage: "<module.hlb>",
	Action:    statsAction,
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("stats: missing <module.hlb> argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	mod, err := decompiler.Load(data)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}

	totalInstrs := 0
	for _, instrs := range mod.Instructions {
		totalInstrs += len(instrs)
	}

	fmt.Printf("file size:   %s\n", humanize.Bytes(uint64(len(data))))
	fmt.Printf("ints:        %s\n", humanize.Comma(int64(len(mod.Pool.Ints))))
	fmt.Printf("floats:      %s\n", humanize.Comma(int64(len(mod.Pool.Floats))))
	fmt.Printf("strings:     %s\n", humanize.Comma(int64(len(mod.Pool.Strings))))
	fmt.Printf("bytes:       %s\n", humanize.Comma(int64(len(mod.Pool.Bytes))))
	fmt.Printf("types:       %s\n", humanize.Comma(int64(len(mod.Pool.Types))))
	fmt.Printf("globals:     %s\n", humanize.Comma(int64(len(mod.Pool.Globals))))
	fmt.Printf("natives:     %s\n", humanize.Comma(int64(len(mod.Pool.Natives))))
	fmt.Printf("functions:   %s\n", humanize.Comma(int64(len(mod.Pool.Funcs))))
	fmt.Printf("classes:     %s\n", humanize.Comma(int64(len(mod.Pool.Classes))))
	fmt.Printf("enums:       %s\n", humanize.Comma(int64(len(mod.Pool.Enums))))
	fmt.Printf("instructions: %s\n", humanize.Comma(int64(totalInstrs)))
	return nil
}
