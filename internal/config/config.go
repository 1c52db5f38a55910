// Package config loads process configuration from the environment and an
// optional upkeep.yaml file. Environment variables win over the file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// S3 holds remote object storage settings. The uploads backend is remote
// exactly when Bucket, AccessKey, and SecretKey are all set.
type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Configured reports whether the remote backend has enough configuration
// to be used.
func (s S3) Configured() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

type Config struct {
	Port      string
	DBPath    string
	Env       string
	LogLevel  string
	UploadDir string
	S3        S3
}

// Production reports whether the process runs in production deployment mode.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Load reads configuration with the UPKEEP_ env prefix, falling back to an
// upkeep.yaml in the working directory if one exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("upkeep")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "upkeep.db")
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log_level", "info")
	v.SetDefault("upload_dir", "data/uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	v.SetConfigName("upkeep")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:      v.GetString("port"),
		DBPath:    v.GetString("db_path"),
		Env:       v.GetString("env"),
		LogLevel:  v.GetString("log_level"),
		UploadDir: v.GetString("upload_dir"),
		S3: S3{
			Endpoint:  v.GetString("s3.endpoint"),
			Region:    v.GetString("s3.region"),
			Bucket:    v.GetString("s3.bucket"),
			AccessKey: v.GetString("s3.access_key"),
			SecretKey: v.GetString("s3.secret_key"),
		},
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("invalid env %q: want %q or %q", cfg.Env, EnvDevelopment, EnvProduction)
	}

	return cfg, nil
}
