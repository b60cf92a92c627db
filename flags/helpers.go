package flags

import (
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

const defaultBlockTime = 3 * time.Second

// Version is the node software version.
const Version = "0.1.0"

func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "platform"
	app.Usage = "Platform state-transition node"
	app.Version = Version
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	return app
}
