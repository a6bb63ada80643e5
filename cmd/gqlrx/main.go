package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "gqlrx",
		Usage: "run GraphQL operations through a caching client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file",
				Value:   ".gqlrx.yml",
				EnvVars: []string{"GQLRX_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			fetchCommand,
			watchCommand,
			mutateCommand,
			subscribeCommand,
			serveCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
