package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort       int    `mapstructure:"http_port"`
	GRPCPort       int    `mapstructure:"grpc_port"`
	LogLevel       string `mapstructure:"log_level"`
	DatabaseDriver string `mapstructure:"database_driver"` // mysql or sqlite
	DatabaseURL    string `mapstructure:"database_url"`
	ServiceName    string `mapstructure:"service_name"`
	JwtSecret      string `mapstructure:"jwt_secret"`
	AdminPassword  string `mapstructure:"admin_password"` // seeded for the initial admin user
	// BaseURL prefixes every href. Empty means derive it from the request.
	BaseURL string `mapstructure:"base_url"`

	RedisAddr        string        `mapstructure:"redis_addr"`
	MetadataCacheTTL time.Duration `mapstructure:"metadata_cache_ttl"`

	// AutomateClassPath is the namespace/class whose instances are listed by OPTIONS.
	AutomateClassPath string `mapstructure:"automate_class_path"`
}

var AppConfig Config

// SetDefaults registers the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("database_driver", "mysql")
	v.SetDefault("database_url", "")
	v.SetDefault("service_name", "custom-buttons")
	v.SetDefault("jwt_secret", "default-very-insecure-secret-key") // CHANGE THIS IN PRODUCTION
	v.SetDefault("admin_password", "adminpassword")
	v.SetDefault("base_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("metadata_cache_ttl", 30*time.Second)
	v.SetDefault("automate_class_path", "SYSTEM/PROCESS")
}

// Load decodes a Config out of v after applying defaults.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	switch cfg.DatabaseDriver {
	case "mysql", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database_driver %q", cfg.DatabaseDriver)
	}
	if cfg.MetadataCacheTTL < 0 {
		return Config{}, fmt.Errorf("metadata_cache_ttl must not be negative")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func InitConfig() {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable overrides, e.g. CBAPI_DATABASE_URL
	v.SetEnvPrefix("CBAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables.")
		} else {
			panic(fmt.Errorf("fatal error reading config file: %w", err))
		}
	}

	cfg, err := Load(v)
	if err != nil {
		panic(err)
	}
	AppConfig = cfg
}
