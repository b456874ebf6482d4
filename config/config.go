// config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

// StoreConfig selects the request store: "mongo" or "memory".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig selects the session store: "redis" or "memory".
type SessionConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

// TTL parses Expiration, falling back to 24h.
func (c JWTConfig) TTL() time.Duration {
	d, err := time.ParseDuration(c.Expiration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"passwordHash"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"clientID"`
	Retries  int      `mapstructure:"retries"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
	Prefix           string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Store   StoreConfig   `mapstructure:"store"`
	Session SessionConfig `mapstructure:"session"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	S3      S3Config      `mapstructure:"s3"`
	Log     LogConfig     `mapstructure:"log"`
}

var envBindings = map[string]string{
	"server.port":            "SERVER_PORT",
	"server.environment":     "APP_ENV",
	"server.allowedOrigins":  "SERVER_ALLOWED_ORIGINS",
	"mongo.uri":              "MONGO_URI",
	"mongo.dbName":           "MONGO_DBNAME",
	"store.driver":           "STORE_DRIVER",
	"session.driver":         "SESSION_DRIVER",
	"session.redis.addr":     "REDIS_ADDR",
	"session.redis.password": "REDIS_PASSWORD",
	"session.redis.db":       "REDIS_DB",
	"jwt.secret":             "JWT_SECRET",
	"jwt.expiration":         "JWT_EXPIRATION",
	"admin.username":         "ADMIN_USERNAME",
	"admin.passwordHash":     "ADMIN_PASSWORD_HASH",
	"kafka.enabled":          "KAFKA_ENABLED",
	"kafka.brokers":          "KAFKA_BROKERS",
	"kafka.topic":            "KAFKA_TOPIC",
	"kafka.clientID":         "KAFKA_CLIENT_ID",
	"kafka.retries":          "KAFKA_RETRIES",
	"s3.bucket":              "S3_BUCKET",
	"s3.region":              "S3_REGION",
	"s3.accessKeyID":         "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":     "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":    "S3_CLOUDFRONT_DOMAIN",
	"s3.prefix":              "S3_PREFIX",
	"log.level":              "LOG_LEVEL",
}

// LoadConfig reads config.yaml from path, then .env, then environment
// variables. A missing config file is not an error.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("mongo.dbName", "part_requests")
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("session.driver", "memory")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("kafka.topic", "part-requests.notifications")
	v.SetDefault("kafka.clientID", "part-request-portal")
	v.SetDefault("kafka.retries", 3)
	v.SetDefault("s3.prefix", "exports")
	v.SetDefault("log.level", "")

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

// Validate checks the settings the selected drivers depend on.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	switch c.Store.Driver {
	case "memory":
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("config: mongo.uri is required for the mongo store")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return errors.New("config: session.redis.addr is required for the redis session store")
		}
	default:
		return fmt.Errorf("config: unknown session driver %q", c.Session.Driver)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.brokers is required when kafka is enabled")
	}
	return nil
}
