package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	RequiredAudience string
	AdminAPIKey      string

	KeyStoreMode string
	VaultAddr    string
	VaultToken   string

	DNSResolverURL string

	OrgCertTTLDays      int
	MemberBundleTTLDays int
	PolicyBundlePath    string

	JWKSCacheBackend string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:            addr,
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		LogLevel:            envDefault("LOG_LEVEL", "info"),
		RequiredAudience:    envDefault("REQUIRED_JWT_AUDIENCE", "veraauth"),
		AdminAPIKey:         os.Getenv("ADMIN_API_KEY"),
		KeyStoreMode:        envDefault("KEY_STORE_MODE", "soft"),
		VaultAddr:           os.Getenv("VAULT_ADDR"),
		VaultToken:          os.Getenv("VAULT_TOKEN"),
		DNSResolverURL:      os.Getenv("DNS_RESOLVER_URL"),
		OrgCertTTLDays:      envIntDefault("ORG_CERT_TTL_DAYS", 90),
		MemberBundleTTLDays: envIntDefault("MEMBER_BUNDLE_TTL_DAYS", 90),
		PolicyBundlePath:    os.Getenv("ISSUANCE_POLICY_BUNDLE"),
		JWKSCacheBackend:    envDefault("JWKS_CACHE_BACKEND", "postgres"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) OrgCertTTL() time.Duration {
	if c.OrgCertTTLDays <= 0 {
		return 0
	}
	return time.Duration(c.OrgCertTTLDays) * 24 * time.Hour
}

func (c Config) MemberBundleTTL() time.Duration {
	if c.MemberBundleTTLDays <= 0 {
		return 0
	}
	return time.Duration(c.MemberBundleTTLDays) * 24 * time.Hour
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
