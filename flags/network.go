package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags select the network and its genesis.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules (main|test|fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "genesis",
			Usage: "Genesis TOML file",
		},
		cli.StringFlag{
			Name:  "fakenet",
			Usage: "Build a fake genesis instead of reading one: <identities>/<masternodes>",
		},
	}
}

// QueryFlags address one path of the state tree.
func QueryFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "path",
			Usage: "Slash-separated state path, e.g. balances or epochs/settlements",
		},
		cli.StringFlag{
			Name:  "key",
			Usage: "Hex key within the path; omit to range over the path",
		},
		cli.StringFlag{
			Name:  "start-after",
			Usage: "Hex key to resume a range after",
		},
		cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of items of a range",
			Value: 100,
		},
	}
}

// SimulateFlags drive the built-in fakenet block producer.
func SimulateFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "blocks",
			Usage: "Number of blocks to produce",
			Value: 10,
		},
		cli.IntFlag{
			Name:  "txs",
			Usage: "Credit transfers per block",
			Value: 4,
		},
		cli.DurationFlag{
			Name:  "block.time",
			Usage: "Block time step",
			Value: defaultBlockTime,
		},
	}
}
