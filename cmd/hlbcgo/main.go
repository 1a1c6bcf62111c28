// Command hlbcgo is the CLI front end for the decompiler core: an
// external collaborator that loads a bytecode module, decompiles
// classes or methods, and renders them to stdout or a file. Built on
// urfave/cli/v3 the way the teacher's own cmd/hey builds its command
// tree.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wudi/hlbcgo/version"
)

func main() {
	app := &cli.Command{
		Name:  "hlbcgo",
		Usage: "A HashLink bytecode decompiler",
		Commands: []*cli.Command{
			decompileCommand,
			inspectCommand,
			statsCommand,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "Show version",
				Action: func(ctx context.Context, cmd *cli.Command, set bool) error {
					if set {
						fmt.Println(version.Full())
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
