package config

import (
	"encoding/json"
	"os"

	"github.com/cvkitdev/cvkit/internal/flagx"
	"github.com/cvkitdev/cvkit/internal/timex"
)

// JsonConfig is the DTO for JSON unmarshalling. Durations may be given as
// strings ("15s") or as integer nanoseconds via timex.Duration.
type JsonConfig struct {
	APIBaseURL       string         `json:"api_base_url"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	HydrationTimeout timex.Duration `json:"hydration_timeout"`
	DatabaseDSN      string         `json:"database_dsn"`
}

// parseJson overlays cfg with values from the JSON file named by the -c or
// -config flag. When no file is given the function is a no-op. Read and
// unmarshal errors panic; the caller treats a broken config file as fatal.
// Absent fields keep their current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HydrationTimeout.Duration > 0 {
		cfg.HydrationTimeout = jc.HydrationTimeout.Duration
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
}
