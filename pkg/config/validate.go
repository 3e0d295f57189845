package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hazyhaar/yurenorm/pkg/normalize"
	"github.com/hazyhaar/yurenorm/pkg/registry"
)

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0 (got %v)", c.Server.ShutdownTimeout)
	}
	if (c.Server.QUIC.CertFile == "") != (c.Server.QUIC.KeyFile == "") {
		return fmt.Errorf("server.quic: cert_file and key_file must be set together")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must be >= 0 (got %d)", c.Cache.Size)
	}
	if c.Sources.CheckInterval <= 0 {
		return fmt.Errorf("sources.check_interval must be > 0 (got %v)", c.Sources.CheckInterval)
	}
	if _, err := normalize.Resolve(c.Normalize); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

// RegistrySources maps the dictionary section to registry sources.
func (c *Config) RegistrySources() registry.Sources {
	return registry.Sources{
		DictDir:      c.Dictionary.Dir,
		SynonymFile:  c.Dictionary.SynonymFile,
		CustomFile:   c.Dictionary.CustomSynonyms,
		UserDictFile: c.Dictionary.UserDict,
		LemmaDict:    !c.Dictionary.SkipLemmaDict,
	}
}

// NewLogger builds the process logger on stderr.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
