package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags select the chain rules and genesis.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules preset (main|test|fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "fakenet",
			Usage: "Run a fake network: <local signer>/<signers>, e.g. 1/3 (0 for a non-signing node)",
		},
		cli.Uint64Flag{
			Name:  "period",
			Usage: "Override the minimum seconds between blocks",
		},
		cli.Uint64Flag{
			Name:  "epoch",
			Usage: "Override the checkpoint interval in blocks",
		},
		cli.StringFlag{
			Name:  "genesis.signers",
			Usage: "Comma-separated initial signer addresses (instead of --fakenet)",
		},
	}
}
