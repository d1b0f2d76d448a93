// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
)

// Names of the two secrets injected by the workflow runner.
const (
	EnvMailUser     = "GMAIL_USER"
	EnvMailPassword = "GMAIL_APP_PWD"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `validate:"gte=0,lte=23"`
	Minute int `validate:"gte=0,lte=59"`
}

// On returns the instant at this time of day on the date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Secrets    model.Secrets
	Recipients []string `validate:"dive,email"`
	SMTPAddr   string   `validate:"required,hostname_port"`
	Note       string

	NSEBaseURL     string         `validate:"required,url"`
	RequestTimeout time.Duration  `validate:"gt=0"`
	SymbolsFile    string         `validate:"omitempty,file"`
	Exchange       *time.Location `validate:"required"`
	WindowStart    TimeOfDay
	Window         time.Duration `validate:"gt=0,lte=6h"`
	BodyRatio      float64       `validate:"gt=0,lte=1"`
	MaxRangePct    float64       `validate:"gt=0"`

	Schedule   string `validate:"required"`
	ListenAddr string `validate:"required,hostname_port"`
	DBPath     string `validate:"required"`

	GitHubToken  string
	GitHubRepo   string `validate:"omitempty,contains=/"`
	WorkflowFile string `validate:"required"`
	GitHubRef    string `validate:"required"`
}

// HasDispatchCredentials returns true when a token and a target repository are
// configured for the hosted runner's manual trigger path.
func (c *Config) HasDispatchCredentials() bool {
	return c.GitHubToken != "" && c.GitHubRepo != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// The mail secrets (GMAIL_USER, GMAIL_APP_PWD) are optional here; commands that send
// mail check them before dialing. Every DOJI_ variable has a default.
func Load() (*Config, error) {
	secrets := model.Secrets{
		User:        os.Getenv(EnvMailUser),
		AppPassword: os.Getenv(EnvMailPassword),
	}

	cfg := &Config{
		Secrets:        secrets,
		SMTPAddr:       envOr("DOJI_SMTP_ADDR", "smtp.gmail.com:465"),
		Note:           os.Getenv("DOJI_NOTE"),
		NSEBaseURL:     strings.TrimRight(envOr("DOJI_NSE_BASE_URL", "https://www.nseindia.com"), "/"),
		SymbolsFile:    os.Getenv("DOJI_SYMBOLS_FILE"),
		Schedule:       envOr("DOJI_SCHEDULE", "50 3 * * *"),
		ListenAddr:     envOr("DOJI_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:         envOr("DOJI_DB_PATH", "dojialert.db"),
		GitHubToken:    os.Getenv("DOJI_GITHUB_TOKEN"),
		GitHubRepo:     os.Getenv("DOJI_GITHUB_REPO"),
		WorkflowFile:   envOr("DOJI_WORKFLOW_FILE", "doji_alert.yml"),
		GitHubRef:      envOr("DOJI_GITHUB_REF", "main"),
		RequestTimeout: 15 * time.Second,
		Window:         5 * time.Minute,
		BodyRatio:      0.1,
		MaxRangePct:    1,
	}

	cfg.Recipients = splitList(os.Getenv("DOJI_RECIPIENTS"))
	if len(cfg.Recipients) == 0 && secrets.User != "" {
		cfg.Recipients = []string{secrets.User}
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("DOJI_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.Window, err = durationEnv("DOJI_WINDOW", cfg.Window); err != nil {
		return nil, err
	}
	if cfg.BodyRatio, err = floatEnv("DOJI_BODY_RATIO", cfg.BodyRatio); err != nil {
		return nil, err
	}
	if cfg.MaxRangePct, err = floatEnv("DOJI_MAX_RANGE_PCT", cfg.MaxRangePct); err != nil {
		return nil, err
	}

	start := envOr("DOJI_WINDOW_START", "09:15")
	parsed, err := time.Parse("15:04", start)
	if err != nil {
		return nil, fmt.Errorf("DOJI_WINDOW_START has invalid time %q: %w", start, err)
	}
	cfg.WindowStart = TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}

	tz := envOr("DOJI_EXCHANGE_TZ", "Asia/Kolkata")
	if cfg.Exchange, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("DOJI_EXCHANGE_TZ has invalid location %q: %w", tz, err)
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("DOJI_SCHEDULE has invalid cron expression %q: %w", cfg.Schedule, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid number %q: %w", key, v, err)
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
