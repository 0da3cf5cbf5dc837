package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/moyu-x/data-librarian/internal"
)

const (
	IndexBackendMemory = "memory"
	IndexBackendSQLite = "sqlite"
)

type Config struct {
	Scanner struct {
		Root            string   `mapstructure:"root"`
		ExcludedFolders []string `mapstructure:"excluded_folders"`
		ExcludedFiles   []string `mapstructure:"excluded_files"`
		HoldingDir      string   `mapstructure:"holding_dir"`
		LogPrefix       string   `mapstructure:"log_prefix"`
		MoveDuplicates  bool     `mapstructure:"move_duplicates"`
	} `mapstructure:"scanner"`
	Index struct {
		Backend string `mapstructure:"backend"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"index"`
	Splitter struct {
		MaxMB        float64 `mapstructure:"max_mb"`
		InitialPages int     `mapstructure:"initial_pages"`
	} `mapstructure:"splitter"`
	Organizer struct {
		Destination string   `mapstructure:"destination"`
		IgnoreFiles []string `mapstructure:"ignore_files"`
	} `mapstructure:"organizer"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Logging struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// ErrUnknownBackend index.backend 不是 memory 或 sqlite
var ErrUnknownBackend = errors.New("unknown index backend")

func setDefaults(v *viper.Viper) {
	v.SetDefault("scanner.root", ".")
	v.SetDefault("scanner.excluded_folders", internal.DefaultExcludedFolders)
	v.SetDefault("scanner.excluded_files", internal.DefaultExcludedFiles)
	v.SetDefault("scanner.holding_dir", internal.DefaultHoldingDir)
	v.SetDefault("scanner.log_prefix", internal.DefaultLogPrefix)
	v.SetDefault("scanner.move_duplicates", true)
	v.SetDefault("index.backend", IndexBackendMemory)
	v.SetDefault("index.path", internal.DefaultIndexPath)
	v.SetDefault("splitter.max_mb", internal.DefaultSplitMaxMB)
	v.SetDefault("splitter.initial_pages", internal.DefaultSplitInitialPages)
	v.SetDefault("organizer.destination", internal.DefaultOrganizeDestination)
	v.SetDefault("organizer.ignore_files", internal.DefaultIgnoreFiles)
	v.SetDefault("server.addr", internal.DefaultServerAddr)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Load 读取配置；cfgFile 为空时在默认目录中查找 config.yaml，找不到时使用默认值
//
// 环境变量以 LIBRARIAN_ 为前缀，例如 LIBRARIAN_SCANNER_MOVE_DUPLICATES=false。
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.data-librarian")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/data-librarian")
	}

	v.SetEnvPrefix("LIBRARIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 不读取任何文件的默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

func (c *Config) Validate() error {
	switch c.Index.Backend {
	case IndexBackendMemory, IndexBackendSQLite:
	default:
		return errors.Join(ErrUnknownBackend, errors.New(c.Index.Backend))
	}
	if c.Splitter.MaxMB <= 0 {
		return errors.New("splitter.max_mb must be positive")
	}
	if c.Splitter.InitialPages < 1 {
		return errors.New("splitter.initial_pages must be at least 1")
	}
	return nil
}
