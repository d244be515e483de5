package carecache

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the deployment knobs that vary per environment. An empty
// RedisURL puts the cache in memory-only mode.
type Config struct {
	RedisURL        string
	DefaultTTL      time.Duration
	MemoryMaxCostMB int64
	WarmInterval    time.Duration
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		RedisURL:        getEnv("CARECACHE_REDIS_URL", ""),
		DefaultTTL:      getDurationEnv("CARECACHE_DEFAULT_TTL", 600*time.Second),
		MemoryMaxCostMB: int64(getIntEnv("CARECACHE_MEMORY_MAX_COST_MB", 64)),
		WarmInterval:    getDurationEnv("CARECACHE_WARM_INTERVAL", 900*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getDurationEnv reads an integer number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal) * time.Second
		}
	}
	return defaultValue
}
