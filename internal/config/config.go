// Package config reads service settings from the environment (optionally
// via a .env file loaded by the caller) and dispatch tunables from an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Dispatch holds the tunables of the dispatch engine.
type Dispatch struct {
	MaxPerCluster         int           `yaml:"max_per_cluster"`
	ProximityMeters       float64       `yaml:"proximity_meters"`
	PriorityGrouping      bool          `yaml:"priority_grouping"`
	AssignmentMode        string        `yaml:"assignment_mode"`
	SLAHours              float64       `yaml:"sla_hours"`
	DrivingSpeedKmh       float64       `yaml:"driving_speed_kmh"`
	CyclingSpeedKmh       float64       `yaml:"cycling_speed_kmh"`
	ProviderTimeout       time.Duration `yaml:"provider_timeout"`
	ProviderRatePerMinute int           `yaml:"provider_rate_per_minute"`
	LockTTL               time.Duration `yaml:"lock_ttl"`
}

func DefaultDispatch() Dispatch {
	return Dispatch{
		MaxPerCluster:         3,
		ProximityMeters:       5000,
		PriorityGrouping:      true,
		AssignmentMode:        "cluster",
		SLAHours:              4,
		DrivingSpeedKmh:       40,
		CyclingSpeedKmh:       15,
		ProviderTimeout:       10 * time.Second,
		ProviderRatePerMinute: 300,
		LockTTL:               2 * time.Minute,
	}
}

func (d Dispatch) Validate() error {
	var errs []error
	if d.MaxPerCluster < 1 {
		errs = append(errs, fmt.Errorf("max_per_cluster must be >= 1, got %d", d.MaxPerCluster))
	}
	if d.ProximityMeters <= 0 {
		errs = append(errs, fmt.Errorf("proximity_meters must be > 0, got %v", d.ProximityMeters))
	}
	switch d.AssignmentMode {
	case "cluster", "task":
	default:
		errs = append(errs, fmt.Errorf("assignment_mode must be cluster or task, got %q", d.AssignmentMode))
	}
	if d.SLAHours <= 0 {
		errs = append(errs, fmt.Errorf("sla_hours must be > 0, got %v", d.SLAHours))
	}
	if d.DrivingSpeedKmh <= 0 || d.CyclingSpeedKmh <= 0 {
		errs = append(errs, errors.New("average speeds must be > 0"))
	}
	if d.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("provider_timeout must be > 0, got %v", d.ProviderTimeout))
	}
	if d.ProviderRatePerMinute < 0 {
		errs = append(errs, fmt.Errorf("provider_rate_per_minute must be >= 0, got %d", d.ProviderRatePerMinute))
	}
	if d.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("lock_ttl must be > 0, got %v", d.LockTTL))
	}
	return errors.Join(errs...)
}

type Config struct {
	Port              string
	DatabaseURL       string
	SeedPath          string
	RedisURL          string
	MapboxAccessToken string
	ORSAPIKey         string
	// Schedule is a cron expression for periodic cycles; "off" disables them.
	Schedule string
	Dispatch Dispatch
}

// Load reads the environment and, when DISPATCH_CONFIG names a file,
// overlays its dispatch block on the defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:              Get("PORT", "8080"),
		DatabaseURL:       Get("DATABASE_URL", ""),
		SeedPath:          Get("SEED_PATH", "data/seeds/dispatch.json"),
		RedisURL:          Get("REDIS_URL", ""),
		MapboxAccessToken: Get("MAPBOX_ACCESS_TOKEN", ""),
		ORSAPIKey:         Get("ORS_API_KEY", ""),
		Schedule:          Get("DISPATCH_SCHEDULE", "@every 30s"),
		Dispatch:          DefaultDispatch(),
	}

	if path := Get("DISPATCH_CONFIG", ""); path != "" {
		d, err := LoadDispatchFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Dispatch = d
	}

	if err := cfg.Dispatch.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

type fileLayout struct {
	Dispatch Dispatch `yaml:"dispatch"`
}

// LoadDispatchFile reads the YAML "dispatch" block; keys it omits keep
// their defaults.
func LoadDispatchFile(path string) (Dispatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dispatch{}, fmt.Errorf("load dispatch config: read %q: %w", path, err)
	}

	f := fileLayout{Dispatch: DefaultDispatch()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Dispatch{}, fmt.Errorf("load dispatch config: parse %q: %w", path, err)
	}
	return f.Dispatch, nil
}
