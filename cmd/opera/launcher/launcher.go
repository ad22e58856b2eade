package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-poa/flags"
)

const version = "0.2.0"

var app = flags.NewApp(version, "Proof-of-authority Opera node")

func init() {
	app.Flags = flags.AllFlags()
	app.Action = runNode
	app.Commands = []cli.Command{dumpConfigCommand, signersCommand}
}

// Launch parses args and runs the node until it is interrupted.
func Launch(args []string) error {
	return app.Run(args)
}
