package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"inboxsage" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"inboxsage" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"inboxsage" description:"Database name"`

	// Application configuration
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl         string `long:"base-url" env:"APP_URL" default:"http://localhost:8080" description:"Public base URL used in digest email links"`
	WorkerLimit     int    `long:"worker-limit" env:"WORKER_LIMIT" default:"5" description:"Maximum concurrent per-user tasks during scheduled fan-out"`
	EnableScheduler bool   `long:"enable-scheduler" env:"ENABLE_SCHEDULER" description:"Enable recurring background jobs"`
	TemplatesFile   string `long:"templates-file" env:"TEMPLATES_FILE" description:"Optional YAML file overriding digest intro/conclusion templates"`

	// External capabilities
	OpenAIAPIKey string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (required)" required:"true"`
	OpenAIModel  string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-3.5-turbo" description:"OpenAI model used for summarization"`
	ResendAPIKey string `long:"resend-api-key" env:"RESEND_API_KEY" description:"Resend API key (required)" required:"true"`
	EmailFrom    string `long:"email-from" env:"EMAIL_FROM" default:"InboxSage <digest@inboxsage.com>" description:"From address for digest emails"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"InboxSage/1.0" description:"User agent string for feed requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Process timezone (per-user digest hours use profile timezones)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:          raw.DBHost,
		DBPort:          raw.DBPort,
		DBUser:          raw.DBUser,
		DBPassword:      raw.DBPassword,
		DBName:          raw.DBName,
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		WorkerLimit:     raw.WorkerLimit,
		EnableScheduler: raw.EnableScheduler,
		TemplatesFile:   raw.TemplatesFile,
		OpenAIAPIKey:    raw.OpenAIAPIKey,
		OpenAIModel:     raw.OpenAIModel,
		ResendAPIKey:    raw.ResendAPIKey,
		EmailFrom:       raw.EmailFrom,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
