package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port  string
	DBDSN string

	// Auth gate
	AdminToken            string
	OAuthClientID         string
	TokenInfoURL          string
	DevJWTSecret          string
	DirectoryAPIURL       string
	DirectoryClientID     string
	DirectoryClientSecret string

	// Introspection cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Generation backend
	GenProvider   string
	GenModel      string
	GenTimeout    time.Duration
	GeminiBaseURL string
	GeminiAPIKey  string
	OllamaBaseURL string

	// Analytics sink
	RabbitURL   string
	RabbitQueue string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	genTimeout := 90 * time.Second
	if v := os.Getenv("GENERATION_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			genTimeout = time.Duration(n) * time.Second
		}
	}

	return Config{
		Port:  getEnv("PORT", "8000"),
		DBDSN: getEnv("DB_DSN", "explore_assistant.db"),

		AdminToken:            os.Getenv("ADMIN_TOKEN"),
		OAuthClientID:         os.Getenv("OAUTH_CLIENT_ID"),
		TokenInfoURL:          getEnv("TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
		DevJWTSecret:          os.Getenv("DEV_JWT_SECRET"),
		DirectoryAPIURL:       getEnv("DIRECTORY_API_URL", "https://looker.example.com/api/4.0"),
		DirectoryClientID:     os.Getenv("DIRECTORY_CLIENT_ID"),
		DirectoryClientSecret: os.Getenv("DIRECTORY_CLIENT_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		GenProvider:   getEnv("GEN_PROVIDER", "gemini"),
		GenModel:      getEnv("GEN_MODEL", "gemini-1.5-flash"),
		GenTimeout:    genTimeout,
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: getEnv("RABBIT_QUEUE", "prompt_records"),
	}
}

// Validate fails fast when required settings are absent. DEV_JWT_SECRET
// loosens the identity-provider requirements for local runs.
func (c Config) Validate() error {
	if c.DevJWTSecret != "" {
		return nil
	}
	missing := []string{}
	if c.OAuthClientID == "" {
		missing = append(missing, "OAUTH_CLIENT_ID")
	}
	if c.DirectoryClientID == "" {
		missing = append(missing, "DIRECTORY_CLIENT_ID")
	}
	if c.DirectoryClientSecret == "" {
		missing = append(missing, "DIRECTORY_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return &MissingConfigError{Keys: missing}
	}
	return nil
}

type MissingConfigError struct{ Keys []string }

func (e *MissingConfigError) Error() string {
	msg := "missing required configuration:"
	for _, k := range e.Keys {
		msg += " " + k
	}
	return msg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
