package domain

import "errors"

var (
	ErrSpecNotFound     = errors.New("signature spec not found")
	ErrInvalidJWT       = errors.New("invalid jwt")
	ErrExpiredJWT       = errors.New("expired jwt")
	ErrJWKSRetrieval    = errors.New("jwks retrieval failed")
	ErrDNSSECRetrieval  = errors.New("dnssec chain retrieval failed")
	ErrOrgNotFound      = errors.New("org not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPolicyDenied     = errors.New("issuance denied by policy")
	ErrOrgAlreadyExists = errors.New("org already exists")
)
