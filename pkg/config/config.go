package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration. Window settings are read here but
// only used by the platform glue.
type Config struct {
	Static StaticConfig
	Log    LogConfig
	Window WindowConfig
	Dev    DevConfig
}

type StaticConfig struct {
	Root    string
	Preload []string
}

type LogConfig struct {
	Level string
	File  string
}

type WindowConfig struct {
	Title  string
	Width  int
	Height int
	Flags  []string
}

// DevConfig configures the development HTTP transport.
type DevConfig struct {
	Addr string
	// Open starts the system browser on the dev URL.
	Open bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("static.root", "public")
	v.SetDefault("static.preload", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("window.title", "Webbridge App")
	v.SetDefault("window.width", 800)
	v.SetDefault("window.height", 600)
	v.SetDefault("window.flags", []string{"decorated", "resizable", "minimize_box"})
	v.SetDefault("dev.addr", "127.0.0.1:8080")
	v.SetDefault("dev.open", false)
}

// Load reads configuration from path, or from $WEBBRIDGE_CONFIG, or from
// webbridge.toml in the working directory. A missing file is not an error
// unless path was given explicitly. Env vars prefixed WEBBRIDGE_ override
// file values (WEBBRIDGE_STATIC_ROOT, WEBBRIDGE_DEV_ADDR, ...).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	explicit := path != ""
	if !explicit {
		path = os.Getenv("WEBBRIDGE_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("webbridge")
	}

	v.SetEnvPrefix("WEBBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return Config{}, fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return c, nil
}
