// Package config loads settings from HEALTHLOG_* environment variables, an
// optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"healthlog/internal/blob"
	"healthlog/internal/handles"
	"healthlog/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HEALTHLOG"

// Config is the resolved application configuration.
type Config struct {
	Blob    blob.Config
	Handles handles.Config
	Log     logging.Config
	// UserEmail is reported as the signed-in identity.
	UserEmail string
	// Folder is where init creates documents when no picker is available.
	Folder string
}

// Options tells Load where to look for files. Empty paths are skipped.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load resolves the configuration. Explicit environment variables win over
// the .env file, which wins over the config file, which wins over defaults.
func Load(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaultDir())

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	cfg := Config{
		Blob: blob.Config{
			Driver: blob.Driver(strings.ToLower(v.GetString("blob.driver"))),
			FSRoot: v.GetString("blob.fs_root"),
			S3: blob.S3Config{
				Bucket:          v.GetString("blob.s3.bucket"),
				Region:          v.GetString("blob.s3.region"),
				Endpoint:        v.GetString("blob.s3.endpoint"),
				AccessKeyID:     v.GetString("blob.s3.access_key_id"),
				SecretAccessKey: v.GetString("blob.s3.secret_access_key"),
				SessionToken:    v.GetString("blob.s3.session_token"),
				PathStyle:       v.GetBool("blob.s3.path_style"),
			},
		},
		Handles: handles.Config{
			Driver:      handles.Driver(strings.ToLower(v.GetString("handles.driver"))),
			SQLitePath:  v.GetString("handles.sqlite_path"),
			PostgresDSN: v.GetString("handles.postgres_dsn"),
			RedisURL:    v.GetString("handles.redis_url"),
			RedisPrefix: v.GetString("handles.redis_prefix"),
		},
		Log: logging.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
		},
		UserEmail: strings.TrimSpace(v.GetString("user.email")),
		Folder:    v.GetString("folder"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.fs_root", filepath.Join(dir, "documents"))
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("blob.s3.session_token", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("handles.driver", string(handles.DriverSQLite))
	v.SetDefault("handles.sqlite_path", filepath.Join(dir, "handles.db"))
	v.SetDefault("handles.postgres_dsn", "")
	v.SetDefault("handles.redis_url", "")
	v.SetDefault("handles.redis_prefix", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("user.email", "")
	v.SetDefault("folder", "")
}

// defaultDir is the per-user state directory.
func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "healthlog")
	}
	return ".healthlog"
}

// Validate rejects unknown drivers and missing driver settings.
func (c Config) Validate() error {
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("config: %s_BLOB_S3_BUCKET is required for the s3 driver", EnvPrefix)
		}
	default:
		return fmt.Errorf("config: unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Handles.Driver {
	case handles.DriverMemory, handles.DriverSQLite:
	case handles.DriverPostgres:
		if c.Handles.PostgresDSN == "" {
			return fmt.Errorf("config: %s_HANDLES_POSTGRES_DSN is required for the postgres driver", EnvPrefix)
		}
	case handles.DriverRedis:
		if c.Handles.RedisURL == "" {
			return fmt.Errorf("config: %s_HANDLES_REDIS_URL is required for the redis driver", EnvPrefix)
		}
	default:
		return fmt.Errorf("config: unknown handles driver %q", c.Handles.Driver)
	}
	return nil
}
