package launcher

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-poa/chain"
	"github.com/rony4d/go-opera-poa/emitter"
	"github.com/rony4d/go-opera-poa/evmcore"
	"github.com/rony4d/go-opera-poa/integration"
	"github.com/rony4d/go-opera-poa/inter"
	"github.com/rony4d/go-opera-poa/inter/validatorpk"
	"github.com/rony4d/go-opera-poa/keyholder"
	"github.com/rony4d/go-opera-poa/opera"
	"github.com/rony4d/go-opera-poa/opera/genesis"
	"github.com/rony4d/go-opera-poa/poa"
)

var (
	errNoSigner = errors.New("--mine needs a signer: --fakenet i/N with i > 0, --signer.key or --unlock")
	errTxRoot   = errors.New("header tx root does not match its transactions")
)

// node is the local host of the engine: it validates headers into an
// arena and feeds the emitter with head changes.
type node struct {
	engine  *poa.Engine
	rules   opera.Rules
	arena   *chain.Arena
	emitter *emitter.Emitter
	log     logrus.FieldLogger
}

func (n *node) Head() *inter.Header {
	return n.arena.Head()
}

// Submit imports a header sealed locally or received from elsewhere.
func (n *node) Submit(header *inter.Header) error {
	if err := n.engine.ValidateHeader(n.arena, header); err != nil {
		return err
	}
	// The devnet carries no transactions; the execution view must agree.
	block := evmcore.NewEvmBlock(evmcore.ToEvmHeader(header, n.rules), nil)
	if block.TxHash != header.TxHash {
		return errTxRoot
	}
	isHead, err := n.arena.Insert(header)
	if err != nil {
		return err
	}
	n.log.WithFields(logrus.Fields{
		"number": header.Number,
		"hash":   header.Hash().Hex(),
		"eth":    evmcore.ToEthHeader(header, n.rules).Hash().Hex(),
		"head":   isHead,
		"forks":  len(n.arena.Tips()),
	}).Info("Imported block")
	if isHead && n.emitter != nil {
		n.emitter.OnNewHead(header)
	}
	return nil
}

func runNode(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Node.Logging)
	if err != nil {
		return err
	}
	n, closeNode, err := makeNode(cfg, log)
	if err != nil {
		return err
	}
	defer closeNode()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	n.log.Info("Got interrupt, shutting down...")
	return nil
}

// makeNode assembles and starts a node. The returned func stops it.
func makeNode(cfg Config, log *logrus.Logger) (*node, func(), error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, nil, err
	}
	g, err := cfg.Genesis(rules)
	if err != nil {
		return nil, nil, err
	}
	gh, err := g.Header()
	if err != nil {
		return nil, nil, err
	}
	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	if cfg.Node.KeystoreDir == "" {
		cfg.Node.KeystoreDir = filepath.Join(cfg.Node.DataDir, "keystore")
	}
	if cfg.Preset.DBPreset != integration.DBMemory {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return nil, nil, err
		}
	}
	db, err := integration.OpenSnapshotDB(cfg.Preset, cfg.Node.DataDir)
	if err != nil {
		return nil, nil, err
	}

	engineCfg := cfg.Preset.Engine
	if engineCfg.Vanity == ([inter.ExtraVanity]byte{}) {
		engineCfg.Vanity = inter.VanityFromBytes([]byte(cfg.Node.Name))
	}
	engine, err := poa.New(rules, gh, engineCfg, db, poa.WithLogger(log))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if len(cfg.Emitter.Schedule) > 0 {
		if err := engine.ScheduleSigners(cfg.Emitter.Schedule); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	arena, err := chain.NewArena(gh)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := engine.ValidateHeader(arena, gh); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("genesis: %w", err)
	}

	n := &node{
		engine: engine,
		rules:  rules,
		arena:  arena,
		log:    log.WithField("module", "node"),
	}
	log.WithFields(logrus.Fields{
		"network": rules.Name,
		"id":      rules.NetworkID,
		"period":  rules.Period,
		"epoch":   rules.Epoch,
		"signers": len(g.Signers),
		"genesis": gh.Hash().Hex(),
	}).Info("Initialised chain")
	log.WithField("config", rules.EvmChainConfig()).Debug("Execution chain config")

	if cfg.Emitter.Enabled {
		keys, err := makeKeyHolder(cfg)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		n.emitter = emitter.New(emitter.DefaultConfig(rules.PeriodDuration()), engine, arena, keys, n, emitter.WithLogger(log))
		n.emitter.Start()
		log.WithField("accounts", len(keys.Accounts())).Info("Started block production")
	}

	stop := func() {
		if n.emitter != nil {
			n.emitter.Stop()
		}
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("Failed to close snapshot database")
		}
	}
	return n, stop, nil
}

// makeKeyHolder picks the signing backend: unlocked keystore accounts when
// --unlock is given, otherwise an in-memory key. Fake networks unlock with
// the fake password unless a password file is given.
func makeKeyHolder(cfg Config) (keyholder.KeyHolder, error) {
	if len(cfg.Emitter.Unlock) > 0 {
		password := validatorpk.FakePassword
		if cfg.Emitter.PasswordFile != "" || cfg.Network.FakeNet == "" {
			var err error
			if password, err = readPassword(cfg.Emitter.PasswordFile); err != nil {
				return nil, err
			}
		}
		ks := keyholder.NewKeystore(cfg.Node.KeystoreDir, cfg.Node.LightKDF)
		for _, addr := range cfg.Emitter.Unlock {
			if err := ks.Unlock(addr, password); err != nil {
				return nil, fmt.Errorf("unlock %s: %w", addr.Hex(), err)
			}
		}
		return ks, nil
	}

	keys, err := localKeys(cfg)
	if err != nil {
		return nil, err
	}
	if len(keys.Accounts()) == 0 {
		return nil, errNoSigner
	}
	return keys, nil
}

// localKeys collects the in-memory keys given by --signer.key and --fakenet.
func localKeys(cfg Config) (*keyholder.LocalKeys, error) {
	keys := keyholder.NewLocalKeys()
	if cfg.Emitter.SignerKey != "" {
		if _, err := keys.AddHex(cfg.Emitter.SignerKey); err != nil {
			return nil, fmt.Errorf("signer key: %w", err)
		}
	}
	if cfg.Network.FakeNet != "" {
		local, _, err := parseFakeNet(cfg.Network.FakeNet)
		if err != nil {
			return nil, err
		}
		if local > 0 {
			keys.Add(genesis.FakeKey(local - 1))
		}
	}
	return keys, nil
}

func readPassword(path string) (string, error) {
	if path == "" {
		return "", errors.New("--unlock needs --password")
	}
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("password file: %w", err)
	}
	lines := strings.Split(string(raw), "\n")
	return strings.TrimRight(lines[0], "\r"), nil
}
