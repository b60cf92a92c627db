package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags tune the local store and block execution.
func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Node name shown in logs",
		},
		cli.StringFlag{
			Name:  "preset",
			Usage: "Node preset (default|lite|validator|archive)",
			Value: "default",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Megabytes of memory allocated to the store cache",
		},
		cli.IntFlag{
			Name:  "handles",
			Usage: "Open file handles allowed to the store",
		},
		cli.IntFlag{
			Name:  "parallelism",
			Usage: "Workers for structure pre-validation (0 = all CPUs)",
		},
		cli.BoolFlag{
			Name:  "verify-conservation",
			Usage: "Re-sum every credit after each block (slow, for development)",
		},
		cli.StringFlag{
			Name:  "datadir.state",
			Usage: "Override path to the state database (defaults to <datadir>/state)",
		},
	}
}
