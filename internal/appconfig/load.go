package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("engine.shutdown_timeout_seconds", cfg.Engine.ShutdownTimeoutSeconds)
	v.SetDefault("gpu.enabled", cfg.GPU.Enabled)
	v.SetDefault("gpu.max_texture_size", cfg.GPU.MaxTextureSize)
	v.SetDefault("gpu.max_cube_map_texture_size", cfg.GPU.MaxCubeMapTextureSize)
	v.SetDefault("gpu.max_combined_texture_image_units", cfg.GPU.MaxCombinedTextureImageUnits)
	v.SetDefault("gpu.max_renderbuffer_size", cfg.GPU.MaxRenderbufferSize)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("diagnostics.ring", cfg.Diagnostics.Ring)
	v.SetDefault("diagnostics.dir", cfg.Diagnostics.Dir)
	v.SetDefault("status.addr", cfg.Status.Addr)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		if !v.IsSet("state_dir") {
			return Config{}, fmt.Errorf("state_dir is required for config_version %d", CurrentConfigVersion)
		}
		if v.IsSet("diagnostics.ring") && v.GetInt("diagnostics.ring") <= 0 {
			return Config{}, fmt.Errorf("diagnostics.ring must be positive")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.Engine.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("engine.shutdown_timeout_seconds must not be negative")
	}
	if cfg.GPU.Enabled && cfg.GPU.MaxTextureSize == 0 {
		return fmt.Errorf("gpu.max_texture_size is required when gpu.enabled is true")
	}
	addr := strings.TrimSpace(cfg.Status.Addr)
	if addr != "" && !strings.Contains(addr, ":") {
		return fmt.Errorf("status.addr must be a host:port listen address")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Diagnostics.Dir = expandEnv(cfg.Diagnostics.Dir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
