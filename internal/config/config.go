// Package config loads peacecam settings from defaults, a YAML file, a .env
// file and PEACECAM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. PEACECAM_TRIGGER_THRESHOLD.
const EnvPrefix = "PEACECAM"

// Config is the full application configuration.
type Config struct {
	Camera   Camera   `mapstructure:"camera"`
	Detector Detector `mapstructure:"detector"`
	Trigger  Trigger  `mapstructure:"trigger"`
	Capture  Capture  `mapstructure:"capture"`
	Display  Display  `mapstructure:"display"`
	Preview  Preview  `mapstructure:"preview"`
	Notify   Notify   `mapstructure:"notify"`
	Plugins  Plugins  `mapstructure:"plugins"`
	Log      Log      `mapstructure:"log"`
}

type Camera struct {
	DeviceID int  `mapstructure:"device_id" validate:"gte=0"`
	Width    int  `mapstructure:"width" validate:"gt=0"`
	Height   int  `mapstructure:"height" validate:"gt=0"`
	FPS      int  `mapstructure:"fps" validate:"gt=0"`
	Mirror   bool `mapstructure:"mirror"`
}

type Detector struct {
	MaxHands               int     `mapstructure:"max_hands" validate:"min=1,max=4"`
	MinDetectionConfidence float64 `mapstructure:"min_detection_confidence" validate:"gte=0,lte=1"`
	MinTrackingConfidence  float64 `mapstructure:"min_tracking_confidence" validate:"gte=0,lte=1"`
	Script                 string  `mapstructure:"script"`
	Python                 string  `mapstructure:"python"`
}

type Trigger struct {
	Threshold time.Duration `mapstructure:"threshold" validate:"gt=0"`
	Cooldown  time.Duration `mapstructure:"cooldown" validate:"gte=0"`
}

type Capture struct {
	Prefix  string `mapstructure:"prefix" validate:"required,excludesall=/\\"`
	Format  string `mapstructure:"format" validate:"oneof=jpg png"`
	Backend string `mapstructure:"backend" validate:"oneof=local s3"`
	Dir     string `mapstructure:"dir"`
	S3      S3     `mapstructure:"s3"`
}

type S3 struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

type Display struct {
	Window bool   `mapstructure:"window"`
	Title  string `mapstructure:"title"`
	// Tray shows a system tray menu when no window is open.
	Tray bool `mapstructure:"tray"`
}

type Preview struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
	FPS     int    `mapstructure:"fps" validate:"gt=0"`
}

type Notify struct {
	Redis Redis `mapstructure:"redis"`
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Channel  string `mapstructure:"channel" validate:"required"`
}

type Plugins struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type Log struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	File  string `mapstructure:"file"`
}

var defaults = map[string]interface{}{
	"camera.device_id": 0,
	"camera.width":     640,
	"camera.height":    480,
	"camera.fps":       15,
	"camera.mirror":    true,

	"detector.max_hands":                2,
	"detector.min_detection_confidence": 0.7,
	"detector.min_tracking_confidence":  0.7,
	"detector.script":                   "",
	"detector.python":                   "",

	"trigger.threshold": 3 * time.Second,
	"trigger.cooldown":  time.Second,

	"capture.prefix":    "selfie",
	"capture.format":    "jpg",
	"capture.backend":   "local",
	"capture.dir":       "selfies",
	"capture.s3.bucket": "",
	"capture.s3.region": "",
	"capture.s3.prefix": "",

	"display.window": true,
	"display.title":  "Gesture Recognition",
	"display.tray":   false,

	"preview.enabled": false,
	"preview.addr":    ":8080",
	"preview.fps":     10,

	"notify.redis.enabled":  false,
	"notify.redis.addr":     "localhost:6379",
	"notify.redis.password": "",
	"notify.redis.db":       0,
	"notify.redis.channel":  "peacecam:captures",

	"plugins.dir":     "",
	"plugins.timeout": 5 * time.Second,

	"log.level": "info",
	"log.file":  "",
}

// Load reads the configuration. An empty path searches for config.yaml in
// the working directory and $HOME/.peacecam; a missing file is fine there.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".peacecam"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Capture.Backend == "s3" && c.Capture.S3.Bucket == "" {
		return errors.New("invalid config: capture.s3.bucket is required for the s3 backend")
	}
	if c.Capture.Backend == "local" && c.Capture.Dir == "" {
		return errors.New("invalid config: capture.dir is required for the local backend")
	}
	return nil
}
