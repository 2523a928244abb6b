package http

import (
	"context"
	"log"

	"veraauth/internal/config"
	"veraauth/internal/domain"
	"veraauth/internal/infra/auth/oidc"
	"veraauth/internal/infra/db"
	"veraauth/internal/infra/jwksredis"
	"veraauth/internal/infra/keys/soft"
	"veraauth/internal/infra/keys/vault"
	"veraauth/internal/infra/policyopa"
	"veraauth/internal/infra/veracrypto"
	"veraauth/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	issuer       *usecase.SignatureIssuer
	memberIssuer *usecase.MemberBundleIssuer
	orgService   *usecase.OrgService

	orgs    usecase.OrgRepository
	members usecase.MemberRepository
	specs   usecase.SpecRepository

	adminAPIKey      string
	requiredAudience string
}

type ServerDeps struct {
	Issuer       *usecase.SignatureIssuer
	MemberIssuer *usecase.MemberBundleIssuer
	OrgService   *usecase.OrgService
	Orgs         usecase.OrgRepository
	Members      usecase.MemberRepository
	Specs        usecase.SpecRepository
	AdminAPIKey  string
	Audience     string
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	deps := buildDeps(cfg, store)
	return NewServerWithDeps(cfg, deps)
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:              cfg,
		r:                r,
		issuer:           deps.Issuer,
		memberIssuer:     deps.MemberIssuer,
		orgService:       deps.OrgService,
		orgs:             deps.Orgs,
		members:          deps.Members,
		specs:            deps.Specs,
		adminAPIKey:      deps.AdminAPIKey,
		requiredAudience: deps.Audience,
	}
	if s.requiredAudience == "" {
		s.requiredAudience = cfg.RequiredAudience
	}
	s.routes()
	return s
}

func buildDeps(cfg config.Config, store *db.Store) ServerDeps {
	orgRepo := db.NewOrgRepository(store.DB)
	memberRepo := db.NewMemberRepository(store.DB)
	specRepo := db.NewSpecRepository(store.DB)

	var jwksStore usecase.JWKSStore = db.NewJWKSStore(store.DB)
	if cfg.JWKSCacheBackend == "redis" {
		redisStore, err := jwksredis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("init redis jwks store: %v", err)
		}
		jwksStore = redisStore
	}

	var kms domain.KeyManagementService = soft.NewManager()
	if cfg.KeyStoreMode == "vault" {
		vaultManager, err := vault.NewManagerFromAddr(cfg.VaultAddr, cfg.VaultToken)
		if err != nil {
			log.Fatalf("init vault key manager: %v", err)
		}
		kms = vaultManager
	}

	crypto := &veracrypto.Service{ResolverURL: cfg.DNSResolverURL}

	var policy usecase.IssuancePolicy
	if cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), cfg.PolicyBundlePath)
		if err != nil {
			log.Fatalf("load issuance policy: %v", err)
		}
		policy = engine
	}

	chainBuilder := &usecase.OrgChainBuilder{
		Orgs:    orgRepo,
		KMS:     kms,
		Crypto:  crypto,
		CertTTL: cfg.OrgCertTTL(),
	}
	verifier := &oidc.Verifier{JWKS: &oidc.JWKSCache{Store: jwksStore}}

	return ServerDeps{
		Issuer: &usecase.SignatureIssuer{
			Specs:    specRepo,
			Members:  memberRepo,
			Verifier: verifier,
			Chain:    chainBuilder,
			Crypto:   crypto,
			Policy:   policy,
		},
		MemberIssuer: &usecase.MemberBundleIssuer{
			Members:   memberRepo,
			Chain:     chainBuilder,
			Crypto:    crypto,
			BundleTTL: cfg.MemberBundleTTL(),
		},
		OrgService: &usecase.OrgService{
			Orgs: orgRepo,
			KMS:  kms,
			Lock: db.NewAdvisoryLocker(store.Pool),
		},
		Orgs:        orgRepo,
		Members:     memberRepo,
		Specs:       specRepo,
		AdminAPIKey: cfg.AdminAPIKey,
		Audience:    cfg.RequiredAudience,
	}
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

func (s *Server) Engine() *gin.Engine {
	return s.r
}
