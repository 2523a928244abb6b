package domain

import "time"

// CachedJWKS is one cached JWKS document keyed by issuer URL. Expiry is
// derived from the Cache-Control headers of the discovery and JWKS responses
// and never exceeds seven days from the time of the fetch.
type CachedJWKS struct {
	IssuerURL string
	Document  []byte
	Expiry    time.Time
}
