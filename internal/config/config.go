package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"
	_ "time/tzdata" // app.timezone must resolve on hosts without a zoneinfo database

	"taskReminder/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "TUGAS"

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	App           AppConfig           `mapstructure:"app"`
	Email         EmailConfig         `mapstructure:"email"`
	Reminder      ReminderConfig      `mapstructure:"reminder"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	CORS          CORSConfig          `mapstructure:"cors"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Type           string        `mapstructure:"type"` // "postgres", "sqlite" or "inmemory"
	URL            string        `mapstructure:"url"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	Migrate        bool          `mapstructure:"migrate"`
}

type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Timezone string `mapstructure:"timezone"`
	// PIN is written to settings at startup when set.
	PIN string `mapstructure:"pin"`
}

type EmailConfig struct {
	Endpoint               string        `mapstructure:"endpoint"`
	ServiceID              string        `mapstructure:"service_id"`
	PublicKey              string        `mapstructure:"public_key"`
	PrivateKey             string        `mapstructure:"private_key"`
	VerificationTemplateID string        `mapstructure:"verification_template_id"`
	NewTaskTemplateID      string        `mapstructure:"new_task_template_id"`
	ReminderTemplateID     string        `mapstructure:"reminder_template_id"`
	Timeout                time.Duration `mapstructure:"timeout"`
}

type ReminderConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	FireHour   int           `mapstructure:"fire_hour"`
	FireMinute int           `mapstructure:"fire_minute"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

type NotificationsConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	InboxSize        int           `mapstructure:"inbox_size"`
}

type StorageConfig struct {
	Type     string `mapstructure:"type"` // "memory", "file" or "redis"
	FilePath string `mapstructure:"file_path"`
	RedisURL string `mapstructure:"redis_url"`
	Prefix   string `mapstructure:"prefix"`
}

type CacheConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Version   string   `mapstructure:"version"`
	StaticDir string   `mapstructure:"static_dir"`
	Routes    []string `mapstructure:"routes"`
}

type WorkerConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	JobTimeout      time.Duration `mapstructure:"job_timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 100)

	v.SetDefault("database.type", "inmemory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "data/tugas.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")

	v.SetDefault("app.name", "Tugas X.1")
	v.SetDefault("app.url", "http://localhost:8080")
	v.SetDefault("app.timezone", "Asia/Jakarta")
	v.SetDefault("app.pin", "")

	v.SetDefault("email.endpoint", "https://api.emailjs.com/api/v1.0/email/send")
	for _, key := range []string{"service_id", "public_key", "private_key", "verification_template_id", "new_task_template_id", "reminder_template_id"} {
		v.SetDefault("email."+key, "")
	}
	v.SetDefault("email.timeout", 10*time.Second)

	v.SetDefault("reminder.interval", 5*time.Minute)
	v.SetDefault("reminder.fire_hour", 7)
	v.SetDefault("reminder.fire_minute", 0)
	v.SetDefault("reminder.run_timeout", time.Minute)

	v.SetDefault("notifications.handshake_timeout", 2*time.Second)
	v.SetDefault("notifications.inbox_size", 100)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.file_path", "data/storage.json")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.prefix", "tugas:")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.version", "task-manager-v1")
	v.SetDefault("cache.static_dir", "web")
	v.SetDefault("cache.routes", []string{"/", "/add-task", "/enable-notifications", "/notification-icon.png"})

	v.SetDefault("worker.queue_size", 64)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.initial_interval", 2*time.Second)
	v.SetDefault("worker.job_timeout", 2*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads .env, the YAML file at path (optional) and TUGAS_* environment variables, in rising priority.
func Load(path string) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch calls onChange with the re-decoded config each time the config file changes.
func Watch(v *viper.Viper, onChange func(*Config, fsnotify.Event)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		reload(v, e, onChange)
	})
	v.WatchConfig()
}

// reload keeps the running config when the edited file does not decode or validate.
func reload(v *viper.Viper, e fsnotify.Event, onChange func(*Config, fsnotify.Event)) {
	cfg, err := decode(v)
	if err != nil {
		logger.Warn("Config: reload rejected", zap.String("file", e.Name), zap.Error(err))
		return
	}
	onChange(cfg, e)
}

func (c *Config) Validate() error {
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server.rate_limit must be at least 1, got %d", c.Server.RateLimit)
	}

	switch c.Database.Type {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for postgres")
		}
	case "sqlite", "inmemory":
	default:
		return fmt.Errorf("unknown database.type %q", c.Database.Type)
	}

	switch c.Storage.Type {
	case "memory", "file":
	case "redis":
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url is required for redis")
		}
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}

	if c.Reminder.FireHour < 0 || c.Reminder.FireHour > 23 || c.Reminder.FireMinute < 0 || c.Reminder.FireMinute > 59 {
		return fmt.Errorf("invalid reminder fire time %02d:%02d", c.Reminder.FireHour, c.Reminder.FireMinute)
	}
	if c.Reminder.Interval <= 0 {
		return errors.New("reminder.interval must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves app.timezone; "Local" and empty mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
