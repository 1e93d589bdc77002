// Package config loads the settings file into the shared config store.
package config

import (
	"path/filepath"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

// LoadFromFile loads settings from cfgPath, panics on failure
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// GetDuration reads a duration setting, falling back to def when unset or invalid.
//
// Accepts both duration strings like "15m" and integer seconds.
func GetDuration(key string, def time.Duration) time.Duration {
	switch v := gconfig.Shared.Get(key).(type) {
	case nil:
		return def
	case string:
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return def
		}
		return d
	case int:
		if v <= 0 {
			return def
		}
		return time.Duration(v) * time.Second
	case int64:
		if v <= 0 {
			return def
		}
		return time.Duration(v) * time.Second
	case float64:
		if v <= 0 {
			return def
		}
		return time.Duration(v * float64(time.Second))
	default:
		return def
	}
}

// GetIntDefault reads an int setting, falling back to def when unset or not positive
func GetIntDefault(key string, def int) int {
	if gconfig.Shared.Get(key) == nil {
		return def
	}

	if v := gconfig.Shared.GetInt(key); v > 0 {
		return v
	}

	return def
}
