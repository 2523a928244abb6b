package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"veraauth/internal/domain"
	"veraauth/internal/usecase"
)

const (
	discoveryPath       = "/.well-known/openid-configuration"
	defaultCacheTTL     = 5 * time.Minute
	maxCacheTTL         = 7 * 24 * time.Hour
	defaultFetchTimeout = 5 * time.Second
)

// JWKSCache fetches an issuer's JWKS via OIDC discovery and caches the
// document in a store. Both HTTP responses get a say in the cache lifetime:
// the stricter Cache-Control wins, and nothing is cached past seven days no
// matter what the remote claims.
type JWKSCache struct {
	Store      usecase.JWKSStore
	HTTPClient *http.Client

	FetchTimeout time.Duration
	Now          func() time.Time
}

type discoveryDocument struct {
	JWKSURI string `json:"jwks_uri"`
}

type jwksDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// FetchAndCache returns the issuer's JWKS document, from the store when a
// live entry exists, otherwise from the network. Transport and parsing
// errors propagate untyped; callers classify them.
func (c *JWKSCache) FetchAndCache(ctx context.Context, issuerURL string) ([]byte, error) {
	cached, err := c.Store.Find(ctx, issuerURL)
	if err == nil {
		return cached.Document, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	discoveryURL := strings.TrimRight(issuerURL, "/") + discoveryPath
	discoveryBody, discoveryCacheControl, err := c.fetch(ctx, discoveryURL)
	if err != nil {
		log.Printf("jwks cache: discovery fetch for %q failed: %v", issuerURL, err)
		return nil, err
	}
	var discovery discoveryDocument
	if err := json.Unmarshal(discoveryBody, &discovery); err != nil {
		log.Printf("jwks cache: malformed discovery document from %q: %v", issuerURL, err)
		return nil, fmt.Errorf("parse discovery document: %w", err)
	}
	if discovery.JWKSURI == "" {
		return nil, errors.New("discovery document missing jwks_uri")
	}
	jwksURL, err := url.Parse(discovery.JWKSURI)
	if err != nil {
		return nil, fmt.Errorf("invalid jwks_uri: %w", err)
	}

	jwksBody, jwksCacheControl, err := c.fetch(ctx, jwksURL.String())
	if err != nil {
		log.Printf("jwks cache: jwks fetch for %q failed: %v", issuerURL, err)
		return nil, err
	}
	var jwks jwksDocument
	if err := json.Unmarshal(jwksBody, &jwks); err != nil {
		return nil, fmt.Errorf("parse jwks document: %w", err)
	}
	if jwks.Keys == nil {
		return nil, errors.New("jwks document missing keys array")
	}

	ttl := cacheTTL(discoveryCacheControl)
	if jwksTTL := cacheTTL(jwksCacheControl); jwksTTL < ttl {
		ttl = jwksTTL
	}
	if ttl > 0 {
		entry := domain.CachedJWKS{
			IssuerURL: issuerURL,
			Document:  jwksBody,
			Expiry:    c.now().Add(ttl),
		}
		if err := c.Store.Upsert(ctx, entry); err != nil {
			return nil, err
		}
	}
	return jwksBody, nil
}

func (c *JWKSCache) fetch(ctx context.Context, rawURL string) (body []byte, cacheControl string, err error) {
	// Each call gets its own budget; a slow discovery endpoint must not
	// eat into the JWKS fetch.
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err = readAll(resp)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Cache-Control"), nil
}

// cacheTTL derives a cache lifetime from one Cache-Control header.
// no-store forbids caching outright; a numeric max-age is honored up to the
// seven-day ceiling; anything else falls back to the default.
func cacheTTL(header string) time.Duration {
	if strings.TrimSpace(header) == "" {
		return defaultCacheTTL
	}
	var maxAge *time.Duration
	for _, directive := range strings.Split(header, ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		if directive == "no-store" {
			return 0
		}
		value, ok := strings.CutPrefix(directive, "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("jwks cache: malformed max-age directive %q; using default ttl", directive)
			continue
		}
		ttl := time.Duration(seconds) * time.Second
		if ttl > maxCacheTTL {
			ttl = maxCacheTTL
		}
		maxAge = &ttl
	}
	if maxAge != nil {
		return *maxAge
	}
	return defaultCacheTTL
}

const maxResponseBytes = 1 << 20

func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

func (c *JWKSCache) fetchTimeout() time.Duration {
	if c.FetchTimeout > 0 {
		return c.FetchTimeout
	}
	return defaultFetchTimeout
}

func (c *JWKSCache) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *JWKSCache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
