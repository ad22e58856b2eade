package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds knobs specific to the local node instance.
func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Custom node name, written into the vanity of sealed headers",
		},
		cli.StringFlag{
			Name:  "keystore",
			Usage: "Directory for storing encrypted account keys (defaults to <datadir>/keystore)",
		},
		cli.BoolFlag{
			Name:  "lightkdf",
			Usage: "Reduce key-derivation hardness (faster account unlock, insecure for prod)",
		},
	}
}

// EmitterFlags configure local block production.
func EmitterFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "mine",
			Usage: "Produce blocks with the unlocked signer accounts",
		},
		cli.StringFlag{
			Name:  "unlock",
			Usage: "Comma-separated keystore accounts to unlock for sealing",
		},
		cli.StringFlag{
			Name:  "password",
			Usage: "File with the password that unlocks --unlock accounts",
		},
		cli.StringFlag{
			Name:  "signer.key",
			Usage: "Hex private key sealed with directly, bypassing the keystore (development only)",
		},
		cli.StringFlag{
			Name:  "vanity",
			Usage: "0x-prefixed hex vanity (up to 32 bytes) for sealed headers",
		},
		cli.DurationFlag{
			Name:  "emitter.wiggle",
			Usage: "Delay unit per rotation step for out-of-turn signers",
		},
		cli.DurationFlag{
			Name:  "emitter.signtimeout",
			Usage: "Timeout of a single signing request",
		},
		cli.StringFlag{
			Name:  "schedule",
			Usage: "Comma-separated signer list to embed at the next checkpoint",
		},
	}
}
