package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"aa/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("server-id", "aa-server", "")

	// oidc config
	pflag.StringSlice("oidc-providers", []string{"google"}, "")
	pflag.String("oidc-google-issuer-url", "https://accounts.google.com", "")
	pflag.String("oidc-google-client-id", "", "")
	pflag.String("oidc-google-client-secret", "", "")
	pflag.String("oidc-github-issuer-url", "", "")
	pflag.String("oidc-github-client-id", "", "")
	pflag.String("oidc-github-client-secret", "", "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")
	pflag.Int64("s3-rate-limit-per-hour", 30, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "public", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "aa:", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-sse", "aa-shared-sse-stream", "")

	// auth config
	pflag.String("auth-private-key", "", "base64 encoded ed25519 private key")
	pflag.Duration("auth-expire-duration", 3*time.Hour, "")
	pflag.String("auth-issuer", "aa", "")
	pflag.String("auth-audience", "aa", "")

	// session config
	pflag.String("session-cookie-key", "aa_session", "")
	pflag.Duration("session-cookie-max-age", 24*time.Hour, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("AA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	providers := map[string]api.OIDCProviderConfig{}
	for _, name := range viper.GetStringSlice("oidc-providers") {
		providers[name] = api.OIDCProviderConfig{
			IssuerURL:    viper.GetString("oidc-" + name + "-issuer-url"),
			ClientID:     viper.GetString("oidc-" + name + "-client-id"),
			ClientSecret: viper.GetString("oidc-" + name + "-client-secret"),
		}
	}

	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			ID: viper.GetString("server-id"),
			OIDC: api.OIDCConfig{
				Providers: providers,
			},
			S3: api.S3Config{
				Endpoint:         viper.GetString("s3-endpoint"),
				Bucket:           viper.GetString("s3-bucket"),
				PublicBaseURL:    viper.GetString("s3-public-base-url"),
				AccessKeyID:      viper.GetString("s3-access-key-id"),
				SecretAccessKey:  viper.GetString("s3-secret-access-key"),
				RateLimitPerHour: viper.GetInt64("s3-rate-limit-per-hour"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					SSE: viper.GetString("redis-stream-key-for-sse"),
				},
			},
			Auth: api.AuthConfig{
				PrivateKey:     loadPrivateKey(viper.GetString("auth-private-key")),
				ExpireDuration: viper.GetDuration("auth-expire-duration"),
				Issuer:         viper.GetString("auth-issuer"),
				Audience:       viper.GetString("auth-audience"),
			},
			Session: api.SessionConfig{
				KeyForCookie: viper.GetString("session-cookie-key"),
				CookieMaxAge: viper.GetDuration("session-cookie-max-age"),
			},
		},
	}
}

// loadPrivateKey 解析base64編碼的ed25519私鑰。
// 沒有提供時產生臨時金鑰,重啟後所有已簽發的token都會失效,
// 多實例部署必須提供同一把金鑰
func loadPrivateKey(encoded string) ed25519.PrivateKey {
	if encoded == "" {
		slog.Warn("No auth private key provided, generating an ephemeral key")
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			panic(err)
		}
		return key
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		panic("invalid auth private key")
	}
	return ed25519.PrivateKey(raw)
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	if args.ServerURL == "" {
		return false
	}
	for _, provider := range args.ServerConfig.OIDC.Providers {
		if provider.IssuerURL == "" || provider.ClientID == "" || provider.ClientSecret == "" {
			return false
		}
	}
	return args.ServerConfig.DB.Host != "" && args.ServerConfig.Redis.Addr != ""
}
