package config

import (
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Users     []User          `yaml:"users"`
	FlowAudit FlowAuditConfig `yaml:"flowaudit"`
	Storage   StorageConfig   `yaml:"storage"`
	Store     StoreConfig     `yaml:"store"`
	Minio     MinioConfig     `yaml:"minio"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Layout    LayoutConfig    `yaml:"layout"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// RateLimit is the number of requests per client IP per minute
	RateLimit int `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	// Password is either plain text or a bcrypt hash
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

// FlowAuditConfig points at the FlowAudit document API
type FlowAuditConfig struct {
	APIURL         string            `yaml:"api_url"`
	APIToken       string            `yaml:"api_token"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	PollAttempts   int               `yaml:"poll_attempts"`
	PollSeconds    int               `yaml:"poll_seconds"`
	CallbackSeed   string            `yaml:"callback_seed"`
	RatingMap      map[string]string `yaml:"rating_map"`
}

// StorageConfig selects the key/value backend for tokens, preferences and
// the document cache
type StorageConfig struct {
	Driver             string `yaml:"driver"` // memory, redis
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
	DocumentTTLSeconds int    `yaml:"document_ttl_seconds"`
}

// StoreConfig bounds the review session store
type StoreConfig struct {
	MaxSessions        int    `yaml:"max_sessions"`
	SessionIdleMinutes int    `yaml:"session_idle_minutes"`
	SweepCron          string `yaml:"sweep_cron"`
}

// MinioConfig configures the feedback archive. An empty endpoint disables it.
type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// KafkaConfig configures feedback events. No brokers disables them.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LayoutConfig struct {
	MinLeftWidth     float64 `yaml:"min_left_width"`
	MaxLeftWidth     float64 `yaml:"max_left_width"`
	DefaultLeftWidth float64 `yaml:"default_left_width"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.FlowAudit.TimeoutSeconds == 0 {
		c.FlowAudit.TimeoutSeconds = 30
	}
	if c.FlowAudit.PollAttempts == 0 {
		c.FlowAudit.PollAttempts = 60
	}
	if c.FlowAudit.PollSeconds == 0 {
		c.FlowAudit.PollSeconds = 5
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.DocumentTTLSeconds == 0 {
		c.Storage.DocumentTTLSeconds = 300
	}
	if c.Store.MaxSessions == 0 {
		c.Store.MaxSessions = 500
	}
	if c.Store.SessionIdleMinutes == 0 {
		c.Store.SessionIdleMinutes = 60
	}
	if c.Store.SweepCron == "" {
		c.Store.SweepCron = "@every 1m"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "flowaudit.feedback"
	}
	if c.Layout.MinLeftWidth == 0 {
		c.Layout.MinLeftWidth = 20
	}
	if c.Layout.MaxLeftWidth == 0 {
		c.Layout.MaxLeftWidth = 80
	}
	if c.Layout.DefaultLeftWidth == 0 {
		c.Layout.DefaultLeftWidth = 50
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}

// CheckPassword compares against a bcrypt hash, or the plain value when the
// stored password is not a hash
func (u *User) CheckPassword(password string) bool {
	if strings.HasPrefix(u.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
	}
	return u.Password == password
}
