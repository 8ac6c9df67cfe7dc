package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	folderEnvVar   = "FOLDER"
	baseURLVar     = "BASE_URL"
	logLevelVar    = "LOG_LEVEL"
	redisAddrVar   = "REDIS_ADDR"
	environmentVar = "ENV"
	demoEmailVar   = "DEMO_EMAIL"
	demoPassVar    = "DEMO_PASSWORD"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Lively")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetBaseURL returns the public URL of the identity API (e.g., "https://api.lively.example")
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetRedisAddr returns the redis address. Empty means in-memory stores are used.
func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "")
}

func (EnvVars) GetEnv() string {
	return GetEnv(environmentVar, "DEV")
}

func (e EnvVars) IsDevelopment() bool {
	return e.GetEnv() == "DEV"
}

// GetDemoEmail is the verified account the demo API seeds at startup. Empty disables seeding.
func (EnvVars) GetDemoEmail() string {
	return GetEnv(demoEmailVar, "")
}

// GetDemoPassword is the seeded account's password. Empty means one is generated and logged.
func (EnvVars) GetDemoPassword() string {
	return GetEnv(demoPassVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses a Go duration string ("90s", "15m"). Invalid values fall back to the default.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// GetBoolEnv parses true/false style values. Invalid values fall back to the default.
func GetBoolEnv(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
