package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/dashpay/platform-sub039/flags"
)

var app = flags.NewApp()

func init() {
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NodeFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)

	app.Commands = []cli.Command{
		initCommand,
		inspectCommand,
		proveCommand,
		simulateCommand,
		dumpConfigCommand,
		dumpGenesisCommand,
	}
}

// Launch runs the command line in args (args[0] is the program name).
func Launch(args []string) error {
	return app.Run(args)
}
