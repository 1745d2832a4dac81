package textdb

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"mit.edu/dsg/textdb/common"
)

// Config holds the settings of a TextDB instance.
//
//	catalogDir: /var/lib/textdb
//	log:
//	  level: debug
//	  json: true
type Config struct {
	// CatalogDir is where the catalog is persisted. Empty keeps the catalog in memory.
	CatalogDir string    `yaml:"catalogDir"`
	Log        LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() Config {
	return Config{Log: LogConfig{Level: "info"}}
}

// LoadConfig reads a YAML config file. Settings missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, common.NewConfigurationError("malformed config: %v", err)
	}
	if _, err := cfg.Log.level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c LogConfig) level() (zapcore.Level, error) {
	if c.Level == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return level, common.NewConfigurationError("unknown log level '%s'", c.Level)
	}
	return level, nil
}

// NewLogger builds the logger described by the config: JSON for machine consumption,
// console output otherwise.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if c.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger, nil
}
