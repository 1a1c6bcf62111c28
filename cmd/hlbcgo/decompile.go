package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wudi/hlbcgo/config"
	"github.com/wudi/hlbcgo/decompiler"
	"github.com/wudi/hlbcgo/printer"
)

var decompileCommand = &cli.Command{
	Name:      "decompile",
	Usage:     "Decompile one class from a bytecode module",
	ArgsUsage: "<module.hlb>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "class", Usage: "class name to decompile"},
		&cli.StringFlag{Name: "config", Usage: "path to a hlbcgo config file", Value: "hlbcgo.yaml"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
	},
	Action: decompileAction,
}

func decompileAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("decompile: missing <module.hlb> argument")
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	mod, err := decompiler.Load(data)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}

	className := cmd.String("class")
	if className == "" {
		return fmt.Errorf("decompile: --class is required")
	}

	classRef, err := mod.FindClassByName(className)
	if err != nil {
		return err
	}

	class, err := mod.DecompileClass(classRef)
	if err != nil {
		return fmt.Errorf("decompiling class %s: %w", className, err)
	}

	out := os.Stdout
	if dest := cmd.String("out"); dest != "" {
		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("creating %s: %w", dest, err)
		}
		defer f.Close()
		out = f
	}

	opts := printer.FormatOptions{IndentUnit: cfg.Format.IndentUnit, MaxWidth: cfg.Format.MaxWidth}
	if opts.IndentUnit == "" {
		opts.IndentUnit = "  "
	}
	return mod.Render(out, class, &opts)
}
