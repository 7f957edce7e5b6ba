// Package config loads the engine's configuration the way the original
// service did: built-in defaults, overlaid by an optional YAML file, overlaid
// by environment variables prefixed CORTEX_ with "__" as the nesting
// separator (e.g. CORTEX_SERVER__PORT, CORTEX_LYSLABS__API_KEY).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cortexlabs/cortexd/pkg/secretstore"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CORTEX_"
const envSeparator = "__"

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type LysLabsConfig struct {
	APIKey string `yaml:"api_key"`
	WSURL  string `yaml:"ws_url"`
}

type HeliusConfig struct {
	APIKey string `yaml:"api_key"`
}

type PolymarketConfig struct {
	GammaBaseURL string `yaml:"gamma_base_url"`
	CLOBBaseURL  string `yaml:"clob_base_url"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	LysLabs    LysLabsConfig    `yaml:"lyslabs"`
	Helius     HeliusConfig     `yaml:"helius"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	LogLevel   string           `yaml:"log_level"`
	LogFile    string           `yaml:"log_file"`
	// DemoMode swaps the Polymarket client for one that serves canned bets
	// from pkg/persistence instead of making network calls.
	DemoMode bool `yaml:"-"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Database: DatabaseConfig{
			URL:      "data/cortex.db",
			Database: "cortex",
		},
		LysLabs: LysLabsConfig{
			APIKey: "",
			WSURL:  "wss://solana-mainnet-api-vip.lyslabs.ai/v1/",
		},
		Helius: HeliusConfig{
			APIKey: "",
		},
		Polymarket: PolymarketConfig{
			GammaBaseURL: "https://gamma-api.polymarket.com",
			CLOBBaseURL:  "https://clob.polymarket.com",
		},
		LogLevel: "info",
	}
}

// Load builds the config from defaults, an optional YAML file at path
// (missing file is not an error), and the CORTEX_ environment overlay.
// .env is loaded first, best-effort, so CORTEX_* vars can live there too.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	applyEnvOverlay(&cfg)
	applySecretStoreOverlay(&cfg)
	cfg.DemoMode = strings.TrimSpace(os.Getenv("CORTEX_DEMO_MODE")) != ""
	return cfg, nil
}

// applySecretStoreOverlay fills in provider API keys still left empty after
// the YAML/env layers from an encrypted Badger secret store, the same
// CORTEX_SECRET_DB/CORTEX_SECRET_KEY-gated "env/<KEY>" lookup the original
// service's cmd/server used for GOBET_SECRET_DB/GOBET_SECRET_KEY. Both the
// db path and the key are optional; either missing means no secret store is
// consulted and the keys stay whatever the YAML/env layers already set.
func applySecretStoreOverlay(cfg *Config) {
	dbPath := strings.TrimSpace(os.Getenv(envPrefix + "SECRET_DB"))
	if dbPath == "" {
		return
	}
	key, err := secretstore.ParseKey(os.Getenv(envPrefix + "SECRET_KEY"))
	if err != nil || key == nil {
		return
	}
	store, err := secretstore.Open(secretstore.OpenOptions{Path: dbPath, EncryptionKey: key, ReadOnly: true})
	if err != nil {
		return
	}
	defer store.Close()

	get := func(dst *string, suffix string) {
		if *dst != "" {
			return
		}
		if v, ok, _ := store.GetString("env/" + suffix); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	get(&cfg.Helius.APIKey, "HELIUS__API_KEY")
	get(&cfg.LysLabs.APIKey, "LYSLABS__API_KEY")
}

// applyEnvOverlay walks the known CORTEX_ env vars and overwrites matching
// fields. A small fixed table rather than reflection, matching the explicit
// field-by-field style of the rest of this tree's config handling.
func applyEnvOverlay(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v, ok := lookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	set(&cfg.Server.Host, "SERVER__HOST")
	setInt(&cfg.Server.Port, "SERVER__PORT")
	set(&cfg.Database.URL, "DATABASE__URL")
	set(&cfg.Database.Database, "DATABASE__DATABASE")
	set(&cfg.Database.User, "DATABASE__USER")
	set(&cfg.Database.Password, "DATABASE__PASSWORD")
	set(&cfg.LysLabs.APIKey, "LYSLABS__API_KEY")
	set(&cfg.LysLabs.WSURL, "LYSLABS__WS_URL")
	set(&cfg.Helius.APIKey, "HELIUS__API_KEY")
	set(&cfg.Polymarket.GammaBaseURL, "POLYMARKET__GAMMA_BASE_URL")
	set(&cfg.Polymarket.CLOBBaseURL, "POLYMARKET__CLOB_BASE_URL")
	set(&cfg.LogLevel, "LOG_LEVEL")
	set(&cfg.LogFile, "LOG_FILE")
}

func lookupEnv(suffix string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + suffix)
	if !ok {
		return "", false
	}
	return v, true
}

// Separator is exported for documentation/tests; it names the nesting
// separator used above ("__"), matching the original config crate's
// Environment::with_prefix("CORTEX").separator("__") convention.
const Separator = envSeparator
