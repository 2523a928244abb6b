package oidc

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"veraauth/internal/domain"
)

// Verifier validates bearer tokens against the keys JWKSCache returns.
// Every signature or claim failure comes back as the same domain.ErrInvalidJWT
// so a caller probing token validity learns nothing about which check failed.
type Verifier struct {
	JWKS *JWKSCache
	Now  func() time.Time
}

func (v *Verifier) VerifyToken(ctx context.Context, token, issuerURL, audience string) (domain.TokenClaims, error) {
	document, err := v.JWKS.FetchAndCache(ctx, issuerURL)
	if err != nil {
		log.Printf("verifier: jwks retrieval for %q failed: %v", issuerURL, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrJWKSRetrieval, err)
	}

	header, claims, signingInput, signature, err := parseJWT(token)
	if err != nil {
		return nil, domain.ErrInvalidJWT
	}
	if alg, _ := header["alg"].(string); alg != "RS256" {
		return nil, domain.ErrInvalidJWT
	}

	kid, _ := header["kid"].(string)
	keys, err := parseRSAKeys(document)
	if err != nil || len(keys) == 0 {
		return nil, domain.ErrInvalidJWT
	}
	if !verifyAgainstKeys(keys, kid, signingInput, signature) {
		return nil, domain.ErrInvalidJWT
	}

	if iss, _ := claims["iss"].(string); iss != issuerURL {
		return nil, domain.ErrInvalidJWT
	}
	if !audienceContains(claims["aud"], audience) {
		return nil, domain.ErrInvalidJWT
	}
	tokenClaims := domain.TokenClaims(claims)
	if expiry, ok := tokenClaims.Expiry(); ok && !expiry.After(v.now()) {
		return nil, domain.ErrInvalidJWT
	}
	return tokenClaims, nil
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseRSAKeys(document []byte) ([]jwkKey, error) {
	var payload struct {
		Keys []jwkKey `json:"keys"`
	}
	if err := json.Unmarshal(document, &payload); err != nil {
		return nil, err
	}
	keys := payload.Keys[:0]
	for _, key := range payload.Keys {
		if key.Kty == "RSA" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// verifyAgainstKeys tries the kid-matching key first, then every other key
// in the set. Providers rotating keys may publish documents whose kids lag
// the tokens they sign.
func verifyAgainstKeys(keys []jwkKey, kid, signingInput string, signature []byte) bool {
	ordered := make([]jwkKey, 0, len(keys))
	for _, key := range keys {
		if kid != "" && key.Kid == kid {
			ordered = append([]jwkKey{key}, ordered...)
			continue
		}
		ordered = append(ordered, key)
	}
	for _, key := range ordered {
		pub, err := jwkToRSAPublicKey(key)
		if err != nil {
			continue
		}
		if verifyRS256(pub, signingInput, signature) == nil {
			return true
		}
	}
	return false
}

func parseJWT(token string) (map[string]any, map[string]any, string, []byte, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, nil, "", nil, errors.New("invalid token format")
	}
	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, "", nil, err
	}
	claimsBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, "", nil, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, nil, "", nil, err
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, "", nil, err
	}
	var claims map[string]any
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, nil, "", nil, err
	}
	return header, claims, parts[0] + "." + parts[1], signature, nil
}

func verifyRS256(pub *rsa.PublicKey, signingInput string, signature []byte) error {
	hash := sha256.Sum256([]byte(signingInput))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, hash[:], signature)
}

func jwkToRSAPublicKey(key jwkKey) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes).Int64()
	if e <= 0 || e > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e)}, nil
}

func audienceContains(raw any, expected string) bool {
	switch v := raw.(type) {
	case string:
		return v == expected
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now().UTC()
}
