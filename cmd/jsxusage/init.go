package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a config file with the default settings",
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:  "path",
				Value: config.DefaultFileName,
				Usage: "Where to write the config",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing file",
			},
		),
		Action: runInit,
	}
}

// runInit writes the defaults with any run flags applied, so
// `jsxusage init -p 8 -f count` records those choices.
func runInit(c *cli.Context) error {
	cfg := config.DefaultConfig()
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := c.String("path")
	if err := config.Write(path, cfg, c.Bool("force")); err != nil {
		if errors.Is(err, config.ErrExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		return err
	}
	color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "Wrote %s\n", path)
	return nil
}
