package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	MongoDB  MongoConfig    `mapstructure:"mongodb"`
	Service  ServiceConfig  `mapstructure:"service"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Debug   bool   `mapstructure:"debug"`
}

type MongoConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type ServiceConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	MetricsPort    string `mapstructure:"metrics_port"`
	GRPCHealthPort string `mapstructure:"grpc_health_port"`
}

// UpstreamConfig holds the base URLs of the course registry (MS1) and the
// enrollment registry (MS2).
type UpstreamConfig struct {
	CoursesURL     string        `mapstructure:"courses_url"`
	EnrollmentsURL string        `mapstructure:"enrollments_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key"`
	SecretAccessKey string        `mapstructure:"secret_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

var envBindings = map[string]string{
	"app.name":                 "APP_NAME",
	"app.debug":                "DEBUG",
	"mongodb.host":             "MONGODB_HOST",
	"mongodb.port":             "MONGODB_PORT",
	"mongodb.database":         "MONGODB_DATABASE",
	"mongodb.user":             "MONGODB_USER",
	"mongodb.password":         "MONGODB_PASSWORD",
	"service.host":             "SERVICE_HOST",
	"service.port":             "SERVICE_PORT",
	"service.metrics_port":     "METRICS_PORT",
	"service.grpc_health_port": "GRPC_HEALTH_PORT",
	"upstream.courses_url":     "MS1_CURSOS_URL",
	"upstream.enrollments_url": "MS2_ESTUDIANTES_URL",
	"upstream.timeout":         "UPSTREAM_TIMEOUT",
	"kafka.brokers":            "KAFKA_BROKERS",
	"kafka.topic":              "KAFKA_TOPIC",
	"minio.endpoint":           "MINIO_ENDPOINT",
	"minio.access_key":         "MINIO_ACCESS_KEY",
	"minio.secret_key":         "MINIO_SECRET_KEY",
	"minio.use_ssl":            "MINIO_USE_SSL",
	"minio.bucket_name":        "MINIO_BUCKET_NAME",
	"minio.url_expiry":         "MINIO_URL_EXPIRY",
}

// LoadConfig reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	v := viper.New()

	v.SetDefault("app.name", "MS3-Contenido-Materiales")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)
	v.SetDefault("mongodb.port", 27017)
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", 8003)
	v.SetDefault("service.metrics_port", "2112")
	v.SetDefault("upstream.timeout", 5*time.Second)
	v.SetDefault("kafka.topic", "material.events")
	v.SetDefault("minio.url_expiry", 15*time.Minute)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.MongoDB.Host == "" {
		missing = append(missing, "MONGODB_HOST")
	}
	if c.MongoDB.Database == "" {
		missing = append(missing, "MONGODB_DATABASE")
	}
	if c.Upstream.CoursesURL == "" {
		missing = append(missing, "MS1_CURSOS_URL")
	}
	if c.Upstream.EnrollmentsURL == "" {
		missing = append(missing, "MS2_ESTUDIANTES_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// URL builds the MongoDB connection string. Credentials are embedded only
// when both user and password are set.
func (c *MongoConfig) URL() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.User != "" && c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

func (c *ServiceConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BrokerList splits the comma separated broker list, dropping blanks.
func (c *KafkaConfig) BrokerList() []string {
	var out []string
	for _, p := range strings.Split(c.Brokers, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
