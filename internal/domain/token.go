package domain

import (
	"encoding/json"
	"time"
)

// TokenClaims is the decoded claim set of a verified bearer token.
type TokenClaims map[string]any

func (c TokenClaims) String(name string) string {
	value, _ := c[name].(string)
	return value
}

// Expiry returns the exp claim when present. The second result is false for
// tokens without an expiry.
func (c TokenClaims) Expiry() (time.Time, bool) {
	return numericDate(c["exp"])
}

func numericDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.Time{}, false
	}
}
