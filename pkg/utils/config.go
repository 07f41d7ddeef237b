package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable, e.g. EVENTHUB_STORE_DRIVER.
// Keys are derived from field names (split_words) only; there is no
// unprefixed fallback, so PATH or API_KEY in the shell are never read.
const EnvPrefix = "EVENTHUB"

type HTTPConfig struct {
	Addr           string   `split_words:"true" default:":3000" validate:"required"`
	TrustedProxies []string `split_words:"true" default:"127.0.0.1"`
	StaticDir      string   `split_words:"true" default:"public"`
}

type StoreConfig struct {
	Driver string `split_words:"true" default:"sqlite" validate:"oneof=sqlite file memory"`
	// Path is the sqlite database or the JSON file, depending on Driver.
	// Empty means ~/.eventhub/events.db (sqlite) or data/db.json (file).
	Path string `split_words:"true"`
}

type UpstreamConfig struct {
	Kind      string        `split_words:"true" default:"serpapi" validate:"oneof=serpapi page"`
	BaseURL   string        `split_words:"true" default:"https://serpapi.com" validate:"required,url"`
	APIKey    string        `split_words:"true"`
	Query     string        `split_words:"true" default:"eventos em recife" validate:"required"`
	Language  string        `split_words:"true" default:"pt"`
	Country   string        `split_words:"true" default:"br"`
	PageURL   string        `split_words:"true" default:"https://www.google.com/search" validate:"omitempty,url"`
	Selector  string        `split_words:"true" default:"a h3"`
	PageLimit int           `split_words:"true" default:"5" validate:"min=1"`
	Timeout   time.Duration `split_words:"true" default:"15s" validate:"gt=0"`
	Retries   int           `split_words:"true" default:"1" validate:"min=0"`
	UserAgent string        `split_words:"true" default:"eventhub/1.0"`
}

type IngestConfig struct {
	MaxPages        int           `split_words:"true" default:"3" validate:"min=1"`
	TargetNew       int           `split_words:"true" default:"5" validate:"min=1"`
	PageSize        int           `split_words:"true" default:"10" validate:"min=1"`
	DescriptionCap  int           `split_words:"true" default:"150" validate:"min=1"`
	DefaultLocation string        `split_words:"true" default:"Recife"`
	FallbackCatalog string        `split_words:"true"`
	RefreshInterval time.Duration `split_words:"true" default:"0s"`
	RunTimeout      time.Duration `split_words:"true" default:"60s" validate:"gt=0"`
}

type SyncConfig struct {
	TCPAddr string `split_words:"true" default:":7070"`
	UDPAddr string `split_words:"true" default:":7071"`
}

type LogConfig struct {
	Level string `split_words:"true" default:"info" validate:"oneof=trace debug info warn error"`
}

// Config holds every setting of the service. Values come from environment
// variables prefixed with EVENTHUB_, for example EVENTHUB_UPSTREAM_API_KEY.
type Config struct {
	HTTP     HTTPConfig
	Store    StoreConfig
	Upstream UpstreamConfig
	Ingest   IngestConfig
	Sync     SyncConfig
	Log      LogConfig
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Upstream.Kind == "serpapi" && strings.TrimSpace(c.Upstream.APIKey) == "" &&
		strings.Contains(c.Upstream.BaseURL, "serpapi.com") {
		return errors.New("invalid config: EVENTHUB_UPSTREAM_API_KEY is required for serpapi.com")
	}
	return nil
}

// NewConfigForTesting returns defaults suitable for tests: in-memory store,
// short timeouts, no background refresh.
func NewConfigForTesting() *Config {
	return &Config{
		HTTP:  HTTPConfig{Addr: ":0"},
		Store: StoreConfig{Driver: "memory"},
		Upstream: UpstreamConfig{
			Kind:      "serpapi",
			BaseURL:   "http://127.0.0.1:9000",
			Query:     "eventos em recife",
			Language:  "pt",
			Country:   "br",
			Selector:  "a h3",
			PageLimit: 5,
			Timeout:   2 * time.Second,
		},
		Ingest: IngestConfig{
			MaxPages:        3,
			TargetNew:       5,
			PageSize:        10,
			DescriptionCap:  150,
			DefaultLocation: "Recife",
			RunTimeout:      10 * time.Second,
		},
		Log: LogConfig{Level: "debug"},
	}
}

// LoadStoreConfig reads only the EVENTHUB_STORE_* variables, for tools that
// never talk to the upstream.
func LoadStoreConfig() (StoreConfig, error) {
	var sc StoreConfig
	if err := envconfig.Process(EnvPrefix+"_STORE", &sc); err != nil {
		return sc, fmt.Errorf("process environment: %w", err)
	}
	if err := validate.Struct(sc); err != nil {
		return sc, fmt.Errorf("invalid store config: %w", err)
	}
	return sc, nil
}
