package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL        string        `env:"DB_URL"`
	APIKeysRaw   string        `env:"API_KEYS"`
	ListenAddr   string        `env:"LISTEN_ADDR" envDefault:":8080"`
	HideClientIP bool          `env:"HIDE_CLIENT_IP" envDefault:"false"`
	RedisURL     string        `env:"REDIS_URL"`
	VisitorTTL   time.Duration `env:"VISITOR_TTL" envDefault:"720h"`

	APIKeys map[string]string // apiKey -> tenantID
}

// Load reads required values from environment variables.
// API_KEYS format: "tenant1:key1,tenant2:key2"
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	cfg.DBURL = strings.TrimSpace(cfg.DBURL)
	if cfg.DBURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	apiKeys, err := parseAPIKeys(cfg.APIKeysRaw)
	if err != nil {
		return Config{}, err
	}

	// Local dev fallback so the service runs out-of-the-box.
	if len(apiKeys) == 0 {
		apiKeys["tenant-key-123"] = "tenant1"
	}
	cfg.APIKeys = apiKeys

	return cfg, nil
}

func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apiKeys, nil
	}

	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`API_KEYS must be "tenant:key,tenant:key"`)
		}
		tenant := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if tenant == "" || key == "" {
			return nil, errors.New(`API_KEYS must be "tenant:key,tenant:key"`)
		}
		apiKeys[key] = tenant
	}
	return apiKeys, nil
}
