package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	R2        R2Config
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	Mailer    MailerConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
	BodyLimitMB    int
	// ServiceToken guards /internal routes called by cron or other services.
	ServiceToken string
}

type DatabaseConfig struct {
	URL string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type MailerConfig struct {
	URL   string
	Token string
	From  string
}

type SchedulerConfig struct {
	StatusSweepInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5200")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("body_limit_mb", 20)
	v.SetDefault("nats_subject_prefix", "netwin")
	v.SetDefault("jwt_issuer", "netwin")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("mailer_from", "no-reply@netwin.gg")
	v.SetDefault("status_sweep_interval", "1m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads .env (if present) and then environment variables.
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("port"),
			AllowedOrigins: v.GetString("allowed_origins"),
			BodyLimitMB:    v.GetInt("body_limit_mb"),
			ServiceToken:   v.GetString("service_token"),
		},
		Database: DatabaseConfig{URL: v.GetString("database_url")},
		R2: R2Config{
			AccountID:       v.GetString("cloudflare_account_id"),
			AccessKeyID:     v.GetString("r2_access_key_id"),
			AccessKeySecret: v.GetString("r2_access_key_secret"),
			Bucket:          v.GetString("r2_bucket_name"),
			CDNBaseURL:      v.GetString("cdn_base_url"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("nats_url"),
			SubjectPrefix: v.GetString("nats_subject_prefix"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("jwt_secret"),
			Issuer:    v.GetString("jwt_issuer"),
			TokenTTL:  v.GetDuration("jwt_ttl"),
		},
		Mailer: MailerConfig{
			URL:   v.GetString("mailer_url"),
			Token: v.GetString("mailer_token"),
			From:  v.GetString("mailer_from"),
		},
		Scheduler: SchedulerConfig{
			StatusSweepInterval: v.GetDuration("status_sweep_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}
	return cfg, nil
}

// Validate checks the settings `netwin serve` cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.R2.Bucket == "" {
		missing = append(missing, "R2_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS into trimmed entries.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
