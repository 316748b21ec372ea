package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/dispatch"
	"github.com/gnana997/jsxusage/pkg/util"
)

// workerCmd is the process transport: requests on stdin, replies on
// stdout, logs on stderr.
func workerCmd() *cli.Command {
	return &cli.Command{
		Name:   "worker",
		Usage:  "Serve analysis requests on stdin (started by scan and crawl)",
		Hidden: true,
		Action: runWorker,
	}
}

func runWorker(c *cli.Context) error {
	logger := util.NewLogger(util.LoggerConfig{
		Level:  util.ParseLogLevel(c.String("log-level")),
		Format: util.ParseLogFormat(c.String("log-format")),
		Output: os.Stderr,
	}).With("worker_pid", os.Getpid())

	opener := dispatch.NewOpener(logger)
	defer opener.Close()

	return dispatch.Serve(c.Context, os.Stdin, os.Stdout, opener.Open, logger)
}
