package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-poa/integration"
	"github.com/rony4d/go-opera-poa/opera"
	"github.com/rony4d/go-opera-poa/opera/genesis"
)

var errBadFakeNet = errors.New("--fakenet must look like <local signer>/<signers>, e.g. 1/3")

// tomlSettings keeps TOML keys identical to the Go field names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node    NodeConfig
	Network NetworkConfig
	Emitter EmitterConfig
	Preset  integration.PresetConfig
}

type NodeConfig struct {
	DataDir     string
	Name        string
	KeystoreDir string
	LightKDF    bool
	Logging     LoggingConfig
}

type LoggingConfig struct {
	// Verbosity is a logrus level: 0 panic up to 6 trace.
	Verbosity int
	Format    string
	Color     bool
	// SentryDSN enables error reporting to Sentry when set.
	SentryDSN string
}

type NetworkConfig struct {
	Name string
	// FakeNet is "<local>/<total>"; empty for real networks.
	FakeNet string
	// Period and Epoch override the preset rules when set.
	Period  *uint64 `toml:",omitempty"`
	Epoch   *uint64 `toml:",omitempty"`
	Signers []common.Address
}

type EmitterConfig struct {
	Enabled      bool
	Unlock       []common.Address
	PasswordFile string
	// SignerKey is a hex private key; development only.
	SignerKey string
	Schedule  []common.Address
}

// MakeAllConfigs merges defaults, the optional config file, then CLI flag
// overrides.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	if file := ctx.GlobalString("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load config file %s: %w", file, err)
		}
	}
	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return cfg, err
	}
	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	if cfg.Node.KeystoreDir == "" {
		cfg.Node.KeystoreDir = filepath.Join(cfg.Node.DataDir, "keystore")
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.GlobalIsSet("preset") {
		preset, err := integration.GetPresetByName(ctx.GlobalString("preset"))
		if err != nil {
			return err
		}
		integration.ApplyPreset(&cfg.Preset, preset)
		cfg.Node.LightKDF = preset.EnableLightKDF
	}
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = ctx.GlobalString("datadir")
	}
	if ctx.GlobalIsSet("identity") {
		cfg.Node.Name = ctx.GlobalString("identity")
	}
	if ctx.GlobalIsSet("keystore") {
		cfg.Node.KeystoreDir = resolvePath(ctx.GlobalString("keystore"))
	}
	if ctx.GlobalIsSet("lightkdf") {
		cfg.Node.LightKDF = ctx.GlobalBool("lightkdf")
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Node.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Node.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("log.sentry") {
		cfg.Node.Logging.SentryDSN = ctx.GlobalString("log.sentry")
	}

	if ctx.GlobalIsSet("network") {
		cfg.Network.Name = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("fakenet") {
		cfg.Network.Name = "fake"
		cfg.Network.FakeNet = ctx.GlobalString("fakenet")
	}
	if ctx.GlobalIsSet("period") {
		v := ctx.GlobalUint64("period")
		cfg.Network.Period = &v
	}
	if ctx.GlobalIsSet("epoch") {
		v := ctx.GlobalUint64("epoch")
		cfg.Network.Epoch = &v
	}
	if ctx.GlobalIsSet("genesis.signers") {
		signers, err := parseAddresses(ctx.GlobalString("genesis.signers"))
		if err != nil {
			return err
		}
		cfg.Network.Signers = signers
	}

	if ctx.GlobalIsSet("mine") {
		cfg.Emitter.Enabled = ctx.GlobalBool("mine")
	}
	if ctx.GlobalIsSet("unlock") {
		unlock, err := parseAddresses(ctx.GlobalString("unlock"))
		if err != nil {
			return err
		}
		cfg.Emitter.Unlock = unlock
	}
	if ctx.GlobalIsSet("password") {
		cfg.Emitter.PasswordFile = ctx.GlobalString("password")
	}
	if ctx.GlobalIsSet("signer.key") {
		cfg.Emitter.SignerKey = ctx.GlobalString("signer.key")
	}
	if ctx.GlobalIsSet("schedule") {
		schedule, err := parseAddresses(ctx.GlobalString("schedule"))
		if err != nil {
			return err
		}
		cfg.Emitter.Schedule = schedule
	}
	if ctx.GlobalIsSet("vanity") {
		vanity, err := parseVanity(ctx.GlobalString("vanity"))
		if err != nil {
			return err
		}
		cfg.Preset.Engine.Vanity = vanity
	}
	if ctx.GlobalIsSet("emitter.wiggle") {
		cfg.Preset.Engine.WiggleTime = ctx.GlobalDuration("emitter.wiggle")
	}
	if ctx.GlobalIsSet("emitter.signtimeout") {
		cfg.Preset.Engine.SignTimeout = ctx.GlobalDuration("emitter.signtimeout")
	}
	return nil
}

// Rules resolves the network rules with the configured overrides.
func (c *Config) Rules() (opera.Rules, error) {
	rules, err := opera.RulesByName(c.Network.Name)
	if err != nil {
		return rules, err
	}
	if c.Network.Period != nil {
		rules.Period = *c.Network.Period
	}
	if c.Network.Epoch != nil {
		rules.Epoch = *c.Network.Epoch
	}
	return rules, rules.Validate()
}

// Genesis builds the genesis of the configured network. Fake networks take
// their signers from the deterministic fake keys.
func (c *Config) Genesis(rules opera.Rules) (*genesis.Genesis, error) {
	if c.Network.FakeNet != "" {
		_, total, err := parseFakeNet(c.Network.FakeNet)
		if err != nil {
			return nil, err
		}
		return genesis.FakeGenesis(rules, total), nil
	}
	g := &genesis.Genesis{
		Rules:    rules,
		Signers:  c.Network.Signers,
		Vanity:   c.Preset.Engine.Vanity,
		Time:     genesis.FakeGenesisTime,
		GasLimit: rules.Blocks.MaxBlockGas,
	}
	return g, g.Validate()
}

// parseFakeNet splits "<local>/<total>". local is 1-based; 0 means the node
// holds no signer key.
func parseFakeNet(s string) (local, total int, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, errBadFakeNet
	}
	if local, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, errBadFakeNet
	}
	if total, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, errBadFakeNet
	}
	if total < 1 || local < 0 || local > total {
		return 0, 0, errBadFakeNet
	}
	return local, total, nil
}

func parseAddresses(raw string) ([]common.Address, error) {
	var out []common.Address
	for _, s := range splitCSV(raw) {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

func parseVanity(raw string) (v [32]byte, err error) {
	b, err := hexutil.Decode(raw)
	if err != nil {
		return v, err
	}
	if len(b) > len(v) {
		return v, fmt.Errorf("vanity is %d bytes, at most %d allowed", len(b), len(v))
	}
	copy(v[:], b)
	return v, nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
