package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/hazyhaar/yurenorm/pkg/normalize"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "YURENORM_CONFIG"

// DefaultPath is read when neither a flag nor PathEnv names a file.
const DefaultPath = "./config.yaml"

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. path overrides PathEnv; when neither is
// set and DefaultPath does not exist, configuration comes from ENV and
// defaults only.
func Load(path string) (*Config, error) {
	cfg := Config{Normalize: normalize.DefaultConfig()}

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	explicitPath := path != ""
	if !explicitPath {
		path = DefaultPath
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	case explicitPath || !errors.Is(statErr, fs.ErrNotExist):
		return nil, fmt.Errorf("config: file %s: %w", path, statErr)
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}
