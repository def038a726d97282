package api

import (
	"crypto/ed25519"
	"time"
)

type ServerConfig struct {
	// 伺服器實例的識別名稱，用於記錄與Redis鎖的命名
	ID string

	OIDC    OIDCConfig
	S3      S3Config
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Session SessionConfig
}

type OIDCConfig struct {
	Providers map[string]OIDCProviderConfig
}

type OIDCProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string

	// 每位使用者每小時可上傳的圖片數量，0代表不限制
	RateLimitPerHour int64
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// 所有key的共用前綴，讓多個環境可以共用同一個Redis
	KeyPrefix  string
	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	SSE string
}

type AuthConfig struct {
	PrivateKey     ed25519.PrivateKey
	ExpireDuration time.Duration
	Issuer         string
	Audience       string
}

type SessionConfig struct {
	KeyForCookie string
	CookieMaxAge time.Duration
}
