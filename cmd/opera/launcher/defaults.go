package launcher

import (
	"github.com/rony4d/go-opera-poa/integration"
)

// DefaultConfig returns the configuration used before the config file and
// command line flags are applied.
func DefaultConfig() Config {
	preset := integration.DefaultPreset()
	return Config{
		Node: NodeConfig{
			DataDir:  "~/.opera-poa",
			Name:     "go-opera-poa",
			LightKDF: preset.EnableLightKDF,
			Logging: LoggingConfig{
				Verbosity: 4,
				Format:    "text",
				Color:     false,
			},
		},
		Network: NetworkConfig{
			Name: "fake",
		},
		Emitter: EmitterConfig{
			Enabled: false,
		},
		Preset: preset,
	}
}
