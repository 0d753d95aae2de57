package config

import "os"

// Config holds the environment-driven settings with in-code defaults
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	Port          string
	AdminTeamName string
	AdminPassword string
	JWTSecret     string
	PistonURL     string
	ServiceName   string
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "redcodegreencode"),
		RedisAddr:     getEnv("REDIS_URI", ""),
		Port:          getEnv("PORT", "5000"),
		AdminTeamName: getEnv("ADMIN_TEAM_NAME", "rcgc@admin2026"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "squidfest@rcgc"),
		JWTSecret:     getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		PistonURL:     getEnv("PISTON_URL", "https://emkc.org/api/v2/piston/execute"),
		ServiceName:   getEnv("SERVICE_NAME", "redcodegreencode-1"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
