package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docsight/docsight-backend/internal/platform/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return strings.TrimSpace(val)
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "provided", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

func GetEnvAsFloat(key string, defaultVal float64, log *logger.Logger) float64 {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as float, using default", "provided", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return f
}

// GetEnvAsSeconds reads an integer env var expressed in seconds.
func GetEnvAsSeconds(key string, defaultSeconds int, log *logger.Logger) time.Duration {
	n := GetEnvAsInt(key, defaultSeconds, log)
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Second
}

// GetEnvAsMinutes reads an integer env var expressed in minutes.
func GetEnvAsMinutes(key string, defaultMinutes int, log *logger.Logger) time.Duration {
	n := GetEnvAsInt(key, defaultMinutes, log)
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Minute
}
