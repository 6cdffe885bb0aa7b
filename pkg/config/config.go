// Package config loads CorpusStorage's tunables from the environment via
// LoadFromEnv and Validate, with defaults applied where a variable is
// unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/annisql/graphannis/pkg/query"
)

// Config holds everything CorpusStorage needs to start: where corpora live
// on disk, how big the component cache may grow, the parallel-joins flag
// handed on to query.Config, and the log verbosity.
type Config struct {
	// RootDir is the directory CorpusStorage directory-scans for corpora.
	RootDir string
	// MaxCacheSize bounds the cache's approxSize total; 0 means unbounded.
	MaxCacheSize int64
	// UseParallelJoins is passed on via QueryConfig; the planner and
	// executor do not act on it, so joins run single-threaded.
	UseParallelJoins bool
	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string
}

// LoadFromEnv reads GRAPHANNIS_* environment variables, falling back to
// defaults for anything unset. It never fails; call Validate afterward.
func LoadFromEnv() *Config {
	return &Config{
		RootDir:          getEnv("GRAPHANNIS_ROOT_DIR", "./data"),
		MaxCacheSize:     getEnvInt64("GRAPHANNIS_MAX_CACHE_SIZE", 0),
		UseParallelJoins: getEnvBool("GRAPHANNIS_PARALLEL_JOINS", false),
		LogLevel:         getEnv("GRAPHANNIS_LOG_LEVEL", "INFO"),
	}
}

// Validate checks for invalid values LoadFromEnv can't rule out on its own.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("config: root dir must not be empty")
	}
	if c.MaxCacheSize < 0 {
		return fmt.Errorf("config: max cache size must not be negative: %d", c.MaxCacheSize)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: invalid log level: %s", c.LogLevel)
	}
	return nil
}

// QueryConfig extracts the subset of c that pkg/planner and pkg/exec care
// about, keeping query.Config free of storage/CLI concerns.
func (c *Config) QueryConfig() query.Config {
	return query.Config{UseParallelJoins: c.UseParallelJoins}
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{RootDir: %s, MaxCacheSize: %d, UseParallelJoins: %v, LogLevel: %s}",
		c.RootDir, c.MaxCacheSize, c.UseParallelJoins, c.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
