// Package config loads the yurenorm service configuration from YAML and
// environment variables.
package config

import (
	"time"

	"github.com/hazyhaar/yurenorm/pkg/normalize"
)

// Config is the root service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Normalize  normalize.Config `yaml:"normalize"`
	Cache      CacheConfig      `yaml:"cache"`
	Sources    SourcesConfig    `yaml:"sources"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"YURENORM_ADDR"             env-default:":8420"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"YURENORM_SHUTDOWN_TIMEOUT" env-default:"10s"`
	QUIC            QUICConfig    `yaml:"quic"`
}

// QUICConfig switches serve to TLS on TCP plus QUIC on UDP, sharing Addr.
// The UDP side carries HTTP/3 and MCP sessions. Without a certificate
// pair a self-signed one is generated.
type QUICConfig struct {
	Enabled  bool   `yaml:"enabled"   env:"YURENORM_QUIC"`
	CertFile string `yaml:"cert_file" env:"YURENORM_TLS_CERT"`
	KeyFile  string `yaml:"key_file"  env:"YURENORM_TLS_KEY"`
}

// DictionaryConfig locates the synonym sources. Dir is a directory holding
// manifest.yaml and takes precedence over SynonymFile.
type DictionaryConfig struct {
	Dir            string `yaml:"dir"             env:"YURENORM_DICT_DIR"`
	SynonymFile    string `yaml:"synonym_file"    env:"YURENORM_SYNONYM_FILE"`
	CustomSynonyms string `yaml:"custom_synonyms" env:"YURENORM_CUSTOM_SYNONYMS"`
	UserDict       string `yaml:"user_dict"       env:"YURENORM_USER_DICT"`
	// SkipLemmaDict disables registering synonym lemmas as analyzer user
	// dictionary words.
	SkipLemmaDict bool `yaml:"skip_lemma_dict" env:"YURENORM_SKIP_LEMMA_DICT"`
}

// CacheConfig sizes the normalization result cache. Zero disables it.
type CacheConfig struct {
	Size int `yaml:"size" env:"YURENORM_CACHE_SIZE" env-default:"4096"`
}

// SourcesConfig holds importer settings.
type SourcesConfig struct {
	DB            string        `yaml:"db"             env:"YURENORM_SOURCES_DB"             env-default:"dicts/sources.db"`
	OutputDir     string        `yaml:"output_dir"     env:"YURENORM_SOURCES_OUTPUT_DIR"     env-default:"dicts"`
	CheckInterval time.Duration `yaml:"check_interval" env:"YURENORM_SOURCES_CHECK_INTERVAL" env-default:"24h"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"YURENORM_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"YURENORM_LOG_FORMAT" env-default:"text"`
}
