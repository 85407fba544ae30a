package xsnapcache

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xsnap/pkg/config/xconf"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

// Config 文件配置，字段与 YAML/JSON 键一一对应。
//
//	dir: /var/cache/myapp
//	default_ttl: 8760h
//	image_ttl: 24h
//	compress: true
//	recovery: skip_entry
//	purge_schedule: "@every 5m"
//	autosave_interval: 10m
//	log:
//	  level: info
//	  format: json
type Config struct {
	Dir              string        `koanf:"dir"`
	StructuredBlob   string        `koanf:"structured_blob"`
	OpaqueBlob       string        `koanf:"opaque_blob"`
	DefaultTTL       time.Duration `koanf:"default_ttl"`
	ImageTTL         time.Duration `koanf:"image_ttl"`
	Compress         bool          `koanf:"compress"`
	Recovery         RecoveryMode  `koanf:"recovery"`
	PurgeSchedule    string        `koanf:"purge_schedule"`
	AutosaveInterval time.Duration `koanf:"autosave_interval"`
	Log              LogConfig     `koanf:"log"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// DefaultConfig 返回默认配置。Dir 为空表示使用 xblob.DefaultDir()。
func DefaultConfig() Config {
	return Config{
		StructuredBlob: DefaultStructuredBlob,
		OpaqueBlob:     DefaultOpaqueBlob,
		DefaultTTL:     DefaultTTL,
		ImageTTL:       DefaultImageTTL,
		Recovery:       RecoveryEraseAll,
		PurgeSchedule:  DefaultPurgeSchedule,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig 以 DefaultConfig 为基础加载配置文件并校验。
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := xconf.Load(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate 校验配置。
func (c Config) Validate() error {
	var errs []error
	if c.DefaultTTL <= 0 {
		errs = append(errs, fmt.Errorf("default_ttl must be positive, got %s", c.DefaultTTL))
	}
	if c.ImageTTL <= 0 {
		errs = append(errs, fmt.Errorf("image_ttl must be positive, got %s", c.ImageTTL))
	}
	if !c.Recovery.Valid() {
		errs = append(errs, fmt.Errorf("unknown recovery %q", c.Recovery))
	}
	if _, err := cron.ParseStandard(c.PurgeSchedule); err != nil {
		errs = append(errs, fmt.Errorf("purge_schedule %q: %w", c.PurgeSchedule, err))
	}
	if c.AutosaveInterval < 0 {
		errs = append(errs, fmt.Errorf("autosave_interval must not be negative, got %s", c.AutosaveInterval))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Gateway 根据 Dir 创建本地目录网关。
func (c Config) Gateway() (*xblob.FS, error) {
	dir := c.Dir
	if dir == "" {
		var err error
		if dir, err = xblob.DefaultDir(); err != nil {
			return nil, err
		}
	}
	return xblob.NewDir(dir)
}

// Options 将配置转换为 Store 选项，不包含网关。
func (c Config) Options() []Option {
	return []Option{
		WithBlobNames(c.StructuredBlob, c.OpaqueBlob),
		WithDefaultTTL(c.DefaultTTL),
		WithImageTTL(c.ImageTTL),
		WithCompression(c.Compress),
		WithRecoveryMode(c.Recovery),
	}
}

// MaintainerOptions 将配置转换为 Maintainer 选项。
func (c Config) MaintainerOptions() []MaintainerOption {
	return []MaintainerOption{
		WithPurgeSchedule(c.PurgeSchedule),
		WithAutosave(c.AutosaveInterval),
	}
}
