package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// fileConfig mirrors the fields of jacoio.Options a config file can set.
// Precedence is defaults < config file < CLI flags: CLI flags always
// override values loaded here.
type fileConfig struct {
	Capacity      int64  `json:"capacity,omitempty"`
	FillWithZeros bool   `json:"fill_with_zeros,omitempty"` //nolint:tagliatelle
	MultiProcess  bool   `json:"multi_process,omitempty"`   //nolint:tagliatelle
	RollPrefix    string `json:"roll_prefix,omitempty"`      //nolint:tagliatelle
	RollSuffix    string `json:"roll_suffix,omitempty"`      //nolint:tagliatelle
	AsyncClose    bool   `json:"async_close,omitempty"`      //nolint:tagliatelle
}

// defaultFileConfig returns the built-in defaults, applied before any
// config file or CLI flag is considered.
func defaultFileConfig() fileConfig {
	return fileConfig{
		Capacity: 1 << 20,
	}
}

// loadConfigFile reads a JSON5-ish (JSONC, via hujson) config file at path.
// A missing path is not an error — callers fall back to defaults.
func loadConfigFile(path string) (fileConfig, error) {
	cfg := defaultFileConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cfg, fmt.Errorf("invalid JSONC in %q: %w", path, err)
	}

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid JSON in %q: %w", path, err)
	}

	return cfg, nil
}
