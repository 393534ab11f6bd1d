package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port               string
	Env                string // "dev" | "prod"
	MongoURI           string
	MongoDB            string
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleJWKSURL      string
	RedisAddr          string
	RateLimitPerMin    int
	RabbitURL          string
	CORSOrigin         string
}

func Load() Config {
	return Config{
		Port:               getenv("APP_PORT", "8080"),
		Env:                getenv("APP_ENV", "dev"),
		MongoURI:           getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getenv("MONGO_DB", "bobasync"),
		JWTSecret:          getenv("JWT_SECRET", "default_secret_key"),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getenv("GOOGLE_REDIRECT_URL", ""),
		GoogleJWKSURL:      getenv("GOOGLE_JWKS_URL", ""),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		RateLimitPerMin:    atoi(getenv("RATE_LIMIT_PER_MIN", "120")),
		RabbitURL:          getenv("RABBIT_URL", ""),
		CORSOrigin:         getenv("CORS_ORIGIN", "*"),
	}
}

func (c Config) IsDev() bool { return c.Env != "prod" }

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
