package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv, AppPort, BaseURL, ClientURL string
	DBDSN                               string
	RedisAddr, RedisPassword            string
	RedisDB                             int
	SessionCookieName                   string
	SessionTTL                          time.Duration
	JWTSecret                           string
	PasswordResetTTL                    time.Duration

	GoogleClientID, GoogleClientSecret, GoogleRedirectURL string
	OAuthAllowedDomains                                   []string
	CORSOrigins                                           []string

	MidtransServerKey string
	MidtransEnv       string
	MidtransRPS       int
	MidtransBurst     int

	LoginRateLimit     int
	SignupRateLimit    int
	ResetRateLimit     int
	RateLimitWindow    time.Duration
	GlobalRateLimitMax int
	GlobalRateWindow   time.Duration

	AvatarDir          string
	AvatarMaxW         int
	AllowedMaxFileSize int
	AllowedFileExt     []string
}

func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppEnv:              get("APP_ENV", "dev"),
		AppPort:             get("APP_PORT", "8080"),
		BaseURL:             get("APP_BASE_URL", "http://localhost:8080"),
		ClientURL:           get("CLIENT_URL", "http://localhost:5173"),
		DBDSN:               must("DB_DSN"),
		RedisAddr:           get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:       get("REDIS_PASSWORD", ""),
		RedisDB:             atoi(get("REDIS_DB", "0")),
		SessionCookieName:   get("SESSION_COOKIE_NAME", "pbe_sid"),
		SessionTTL:          mustDuration(get("SESSION_TTL", "168h")),
		JWTSecret:           must("JWT_SECRET"),
		PasswordResetTTL:    mustDuration(get("PASSWORD_RESET_TTL", "30m")),
		CORSOrigins:         split(get("CORS_ORIGINS", "http://localhost:5173")),
		GoogleClientID:      get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:   get("GOOGLE_REDIRECT_URL", ""),
		OAuthAllowedDomains: split(get("OAUTH_ALLOWED_DOMAINS", "")),
		MidtransServerKey:   get("MIDTRANS_SERVER_KEY", ""),
		MidtransEnv:         get("MIDTRANS_ENV", "sandbox"),
		MidtransRPS:         GetEnvInt("MIDTRANS_RPS", 5),
		MidtransBurst:       GetEnvInt("MIDTRANS_BURST", 5),
		LoginRateLimit:      GetEnvInt("RATE_LIMIT_LOGIN", 5),
		SignupRateLimit:     GetEnvInt("RATE_LIMIT_SIGNUP", 3),
		ResetRateLimit:      GetEnvInt("RATE_LIMIT_PASSWORD_RESET", 3),
		RateLimitWindow:     mustDuration(get("RATE_LIMIT_WINDOW", "15m")),
		GlobalRateLimitMax:  GetEnvInt("RATE_LIMIT_GLOBAL_MAX", 300),
		GlobalRateWindow:    mustDuration(get("RATE_LIMIT_GLOBAL_WINDOW", "1m")),
		AvatarDir:           get("AVATAR_DIR", "./storage/avatars"),
		AvatarMaxW:          GetEnvInt("AVATAR_MAX_W", 256),
		AllowedMaxFileSize:  GetEnvInt("ALLOWED_MAX_FILE_SIZE", 2),
		AllowedFileExt:      GetEnvList("ALLOWED_FILE_EXT", []string{".jpg", ".jpeg", ".png"}),
	}
	return c
}

func (c *Config) IsDev() bool { return c.AppEnv == "dev" }

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func GetEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func GetEnvList(k string, d []string) []string {
	if v := os.Getenv(k); v != "" {
		return strings.Split(v, ",")
	}
	return d
}

func get(k, d string) string { return GetEnv(k, d) }
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}
func atoi(s string) int { i, _ := strconv.Atoi(s); return i }
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("bad duration %q: %v", s, err)
	}
	return d
}
func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func GetEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
