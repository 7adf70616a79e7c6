package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings are the process-level options of the diplomagen binary.
type Settings struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`

	Listen string `mapstructure:"listen"`

	// Backend selects the rendering surface: "chrome" or "draft".
	Backend       string        `mapstructure:"backend"`
	ChromePath    string        `mapstructure:"chromePath"`
	NoSandbox     bool          `mapstructure:"noSandbox"`
	AutoDownload  bool          `mapstructure:"autoDownload"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SettleTimeout time.Duration `mapstructure:"settleTimeout"`

	Scale       float64 `mapstructure:"scale"`
	Quality     float64 `mapstructure:"quality"`
	Concurrency int     `mapstructure:"concurrency"`

	// Store selects configuration persistence: "memory", "file" or "redis".
	Store         string `mapstructure:"store"`
	StorePath     string `mapstructure:"storePath"`
	StorageKey    string `mapstructure:"storageKey"`
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDB"`

	JobTTL time.Duration `mapstructure:"jobTTL"`
}

// EnvPrefix prefixes every environment variable read by LoadSettings,
// e.g. DIPLOMA_LISTEN.
const EnvPrefix = "DIPLOMA"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", "DEV")
	v.SetDefault("debug", false)
	v.SetDefault("listen", ":8080")
	v.SetDefault("backend", "chrome")
	v.SetDefault("chromePath", "")
	v.SetDefault("noSandbox", false)
	v.SetDefault("autoDownload", false)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("settleTimeout", 2*time.Second)
	v.SetDefault("scale", 2.0)
	v.SetDefault("quality", 0.9)
	v.SetDefault("concurrency", 1)
	v.SetDefault("store", "file")
	v.SetDefault("storePath", filepath.Join(".", "data", StorageKey+".json"))
	v.SetDefault("storageKey", StorageKey)
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("jobTTL", 15*time.Minute)
	return v
}

// LoadSettings reads settings from defaults, an optional config file, an
// optional .env.{env} file in dotEnvDir and DIPLOMA_* environment
// variables, in increasing order of precedence.
func LoadSettings(configFile, dotEnvDir string) (Settings, error) {
	env := strings.ToUpper(os.Getenv(EnvPrefix + "_ENV"))
	if env == "" {
		env = "DEV"
	}
	if dotEnvDir != "" {
		path := filepath.Join(dotEnvDir, ".env."+strings.ToLower(env))
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return Settings{}, fmt.Errorf("config: loading %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	v := newViper()
	v.Set("env", env)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: decoding settings: %w", err)
	}
	return s, nil
}
