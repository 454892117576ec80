package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "EOMONITOR_CONFIG"
	logLevelEnv        = "EOMONITOR_LOG_LEVEL"
	statePathEnv       = "EOMONITOR_STATE_PATH"
	stateDSNEnv        = "EOMONITOR_STATE_DSN"
	documentCloudToken = "DOCUMENTCLOUD_TOKEN"
	blueskyHandleEnv   = "BLUESKY_HANDLE"
	blueskyPasswordEnv = "BLUESKY_APP_PASSWORD"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Source        SourceConfig        `yaml:"source"`
	State         StateConfig         `yaml:"state"`
	DocumentCloud DocumentCloudConfig `yaml:"documentcloud"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Decentralized DecentralizedConfig `yaml:"decentralized"`
	Announce      AnnounceConfig      `yaml:"announce"`
}

// LoggingConfig selects handler level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig defines how often runs are allowed to do work.
type ScheduleConfig struct {
	Cadence string `yaml:"cadence"`
}

// Interval resolves the cadence name to a minimum gap between runs.
// Besides the named cadences, any Go duration string is accepted.
func (s ScheduleConfig) Interval() time.Duration {
	switch strings.ToLower(strings.TrimSpace(s.Cadence)) {
	case "hourly":
		return time.Hour
	case "daily", "":
		return 24 * time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	}
	if d, err := time.ParseDuration(s.Cadence); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// SourceConfig selects the snapshot strategy and its endpoints.
type SourceConfig struct {
	Strategy             string `yaml:"strategy"`
	ListingURL           string `yaml:"listingUrl"`
	FeedURL              string `yaml:"feedUrl"`
	IncludeProclamations bool   `yaml:"includeProclamations"`
	UserAgent            string `yaml:"userAgent"`
}

// StateConfig describes where the ledgers live.
type StateConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

// DocumentCloudConfig wires the primary document repository.
type DocumentCloudConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Token   string `yaml:"token"`
}

// ArchiveConfig controls the archival export stage.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Required bool   `yaml:"required"`
	Addon    string `yaml:"addon"`
}

// DecentralizedConfig controls the irreversible replication stage.
type DecentralizedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addon   string `yaml:"addon"`
}

// AnnounceConfig wires the Bluesky announcement stage.
type AnnounceConfig struct {
	ServiceURL  string   `yaml:"serviceUrl"`
	Handle      string   `yaml:"handle"`
	AppPassword string   `yaml:"appPassword"`
	Template    string   `yaml:"template"`
	Hashtags    []string `yaml:"hashtags"`
}

// Enabled reports whether announcement credentials are present. Missing
// credentials disable the stage instead of failing the run.
func (a AnnounceConfig) Enabled() bool {
	return a.Handle != "" && a.AppPassword != ""
}

// Load reads YAML configuration (if present) on top of defaults and applies
// environment overrides. An empty path falls back to EOMONITOR_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			cfg = defaultConfig()
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Validate reports configuration that cannot produce a working run.
func (c Config) Validate() error {
	if c.DocumentCloud.Token == "" {
		return fmt.Errorf("documentcloud token is required (set %s)", documentCloudToken)
	}
	if c.Archive.Required && !c.Archive.Enabled {
		return fmt.Errorf("archive stage is required but disabled")
	}
	if c.Decentralized.Enabled && !c.Archive.Enabled {
		return fmt.Errorf("decentralized stage needs the archive stage enabled")
	}
	switch c.State.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported state backend %q", c.State.Backend)
	}
	switch c.Source.Strategy {
	case "whitehouse", "feed":
	default:
		return fmt.Errorf("unknown source strategy %q", c.Source.Strategy)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(statePathEnv); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv(stateDSNEnv); v != "" {
		c.State.DSN = v
		c.State.Backend = "postgres"
	}

	if v := os.Getenv(documentCloudToken); v != "" {
		c.DocumentCloud.Token = v
	}

	if v := os.Getenv(blueskyHandleEnv); v != "" {
		c.Announce.Handle = v
	}
	if v := os.Getenv(blueskyPasswordEnv); v != "" {
		c.Announce.AppPassword = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Schedule: ScheduleConfig{Cadence: "daily"},
		Source: SourceConfig{
			Strategy:   "whitehouse",
			ListingURL: "https://www.whitehouse.gov/presidential-actions/",
			FeedURL:    "https://www.whitehouse.gov/presidential-actions/feed/",
			UserAgent:  "Executive Orders Monitor (+https://www.documentcloud.org)",
		},
		State: StateConfig{Backend: "sqlite", Path: "eomonitor.db"},
		DocumentCloud: DocumentCloudConfig{
			BaseURL: "https://api.www.documentcloud.org",
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Addon:   "MuckRock/Internet-Archive-Export-Add-On",
		},
		Decentralized: DecentralizedConfig{
			Addon: "MuckRock/Internet-Archive-Export-Add-On",
		},
		Announce: AnnounceConfig{
			ServiceURL: "https://bsky.social",
			Template: "\U0001F195 Executive Order: {title}\n\U0001F4C4 EO-{number}\n\n" +
				"Full text archived:\n\U0001F517 DocumentCloud: {primary_url}\n\U0001F517 Original: {source_url}\n\n{hashtags}",
			Hashtags: []string{"#ExecutiveOrder", "#WhiteHouse", "#GovDocs", "#Transparency"},
		},
	}
}
