package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/wudi/hlbcgo/decompiler"
	"github.com/wudi/hlbcgo/printer"
)

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Interactively browse a bytecode module's classes and methods",
	ArgsUsage: "<module.hlb>",
	Action:    inspectAction,
}

// selection addresses the currently focused class and, within it, an
// optional method name; the REPL narrows a selection with `class` and
// `method` commands the way an item-selection shell narrows scope.
type selection struct {
	className  string
	methodName string
}

func (s selection) String() string {
	if s.className == "" {
		return "module"
	}
	if s.methodName == "" {
		return s.className
	}
	return s.className + "." + s.methodName
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("inspect: missing <module.hlb> argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	mod, err := decompiler.Load(data)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}

	sessionID := uuid.New().String()
	fmt.Printf("hlbcgo inspect — session %s\n", sessionID)
	fmt.Printf("%s loaded: %s classes, %s functions, %s strings\n",
		path,
		humanize.Comma(int64(len(mod.Pool.Classes))),
		humanize.Comma(int64(len(mod.Pool.Funcs))),
		humanize.Comma(int64(len(mod.Pool.Strings))))

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return runInspectBatch(mod, os.Stdin)
	}

	rl, err := readline.New("hlbcgo> ")
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	sel := selection{}
	for {
		rl.SetPrompt(fmt.Sprintf("hlbcgo(%s)> ", sel))
		line, err := rl.Readline()
		if err != nil { // io.EOF on ^D, readline.ErrInterrupt on ^C
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := runInspectCommand(mod, &sel, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func runInspectBatch(mod *decompiler.Module, r io.Reader) error {
	sel := selection{}
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := runInspectCommand(mod, &sel, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func runInspectCommand(mod *decompiler.Module, sel *selection, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "classes":
		for _, c := range mod.Pool.Classes {
			t, err := mod.Pool.ResolveType(c.Type)
			if err != nil {
				continue
			}
			name, _ := mod.Pool.ResolveString(t.Name)
			fmt.Println(name)
		}
	case "class":
		if len(fields) < 2 {
			return fmt.Errorf("usage: class <name>")
		}
		sel.className = fields[1]
		sel.methodName = ""
	case "method":
		if len(fields) < 2 {
			return fmt.Errorf("usage: method <name>")
		}
		sel.methodName = fields[1]
	case "show":
		return showSelection(mod, *sel)
	default:
		return fmt.Errorf("unknown command %q (try: classes, class <name>, method <name>, show)", fields[0])
	}
	return nil
}

func showSelection(mod *decompiler.Module, sel selection) error {
	if sel.className == "" {
		return fmt.Errorf("no class selected; use: class <name>")
	}
	classRef, err := mod.FindClassByName(sel.className)
	if err != nil {
		return err
	}
	class, err := mod.DecompileClass(classRef)
	if err != nil {
		return err
	}
	opts := printer.DefaultFormatOptions()
	if sel.methodName == "" {
		return mod.Render(os.Stdout, class, &opts)
	}
	for _, m := range class.Methods {
		fn, err := mod.Pool.ResolveFunction(m.Fun)
		if err != nil {
			continue
		}
		name, err := mod.Pool.ResolveString(fn.Name)
		if err == nil && name == sel.methodName {
			return mod.Render(os.Stdout, m, &opts)
		}
	}
	return fmt.Errorf("no method named %s on class %s", sel.methodName, sel.className)
}
