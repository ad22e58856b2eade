package launcher

import (
	"io/ioutil"
	"os"

	"gopkg.in/urfave/cli.v1"
)

var dumpConfigCommand = cli.Command{
	Action:    dumpConfig,
	Name:      "dumpconfig",
	Usage:     "Show configuration values",
	ArgsUsage: "[file]",
	Description: `The dumpconfig command prints the merged configuration as TOML,
or writes it to the given file. The output is accepted by --config.`,
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	if path := ctx.Args().First(); path != "" {
		return ioutil.WriteFile(path, out, 0o644)
	}
	_, err = os.Stdout.Write(out)
	return err
}
