package launcher

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var signersCommand = cli.Command{
	Action: showSigners,
	Name:   "signers",
	Usage:  "Print the genesis authority set and its rotation",
	Description: `The signers command prints the genesis signers in rotation order.
Block n is in turn for the signer at row n mod N. Signers whose key is
configured locally (--fakenet, --signer.key) are listed with their public key.`,
}

func showSigners(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	g, err := cfg.Genesis(rules)
	if err != nil {
		return err
	}

	keys, err := localKeys(cfg)
	if err != nil {
		return err
	}

	signers := g.SortedSigners()
	fmt.Fprintf(ctx.App.Writer, "network %s, %d signers, cooldown %d blocks\n",
		rules.Name, len(signers), len(signers)/2+1)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"#", "Address", "First in turn", "Local public key"})
	for i, addr := range signers {
		first := i
		if first == 0 {
			first = len(signers)
		}
		pub := ""
		if pk, ok := keys.PubKey(addr); ok {
			pub = pk.String()
		}
		table.Append([]string{strconv.Itoa(i), addr.Hex(), strconv.Itoa(first), pub})
	}
	table.Render()
	return nil
}
