package http

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"veraauth/internal/domain"
	"veraauth/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)

	v1 := s.r.Group("/v1")
	v1.POST("/signature-specs/:id/bundle", s.handleIssueSignatureBundle)

	admin := v1.Group("", s.requireAdminKey)
	admin.POST("/orgs", s.handleCreateOrg)
	admin.DELETE("/orgs/:name", s.handleDeleteOrg)
	admin.POST("/orgs/:name/members", s.handleCreateMember)
	admin.GET("/orgs/:name/members/:id", s.handleGetMember)
	admin.DELETE("/orgs/:name/members/:id", s.handleDeleteMember)
	admin.POST("/orgs/:name/members/:id/bundle", s.handleIssueMemberBundle)
	admin.POST("/signature-specs", s.handleCreateSpec)
	admin.GET("/signature-specs/:id", s.handleGetSpec)
	admin.DELETE("/signature-specs/:id", s.handleDeleteSpec)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIssueSignatureBundle(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token required")
		return
	}
	bundle, err := s.issuer.Execute(c.Request.Context(), usecase.IssueSignatureRequest{
		JWT:      token,
		Audience: s.requiredAudience,
		SpecID:   c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", bundle.Serialized)
}

type createOrgInput struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleCreateOrg(c *gin.Context) {
	var input createOrgInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	org, err := s.orgService.Create(c.Request.Context(), input.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"name":      org.Name,
		"publicKey": base64.StdEncoding.EncodeToString(org.PublicKey),
	})
}

func (s *Server) handleDeleteOrg(c *gin.Context) {
	if err := s.orgService.Delete(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createMemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) handleCreateMember(c *gin.Context) {
	var input createMemberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	member := domain.Member{
		OrgName: c.Param("name"),
		Name:    input.Name,
		Email:   input.Email,
		Role:    domain.MemberRole(input.Role),
	}
	if err := s.members.Create(c.Request.Context(), member); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleGetMember(c *gin.Context) {
	member, err := s.members.GetByID(c.Request.Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    member.ID,
		"org":   member.OrgName,
		"name":  member.Name,
		"email": member.Email,
		"role":  string(member.Role),
	})
}

func (s *Server) handleDeleteMember(c *gin.Context) {
	if err := s.members.Delete(c.Request.Context(), c.Param("name"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type issueMemberBundleInput struct {
	PublicKey string `json:"publicKey" binding:"required"`
}

func (s *Server) handleIssueMemberBundle(c *gin.Context) {
	var input issueMemberBundleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	publicKey, err := base64.StdEncoding.DecodeString(input.PublicKey)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "publicKey must be base64 DER")
		return
	}
	bundle, err := s.memberIssuer.Execute(c.Request.Context(), usecase.IssueMemberBundleRequest{
		OrgName:         c.Param("name"),
		MemberID:        c.Param("id"),
		MemberPublicKey: publicKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	serialized, err := bundle.Serialize()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", serialized)
}

type createSpecInput struct {
	OrgName      string `json:"orgName" binding:"required"`
	MemberID     string `json:"memberId"`
	IssuerURL    string `json:"issuerUrl" binding:"required"`
	SubjectClaim string `json:"subjectClaim" binding:"required"`
	SubjectValue string `json:"subjectValue" binding:"required"`
	ServiceOID   string `json:"serviceOid" binding:"required"`
	TTLSeconds   int    `json:"ttlSeconds"`
	Plaintext    string `json:"plaintext" binding:"required"`
}

func (s *Server) handleCreateSpec(c *gin.Context) {
	var input createSpecInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	plaintext, err := base64.StdEncoding.DecodeString(input.Plaintext)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "plaintext must be base64")
		return
	}
	if input.TTLSeconds < 0 || input.TTLSeconds > domain.MaxSpecTTLSeconds {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_INPUT", "ttlSeconds out of range")
		return
	}
	spec := domain.SignatureSpec{
		OrgName:  input.OrgName,
		MemberID: input.MemberID,
		Auth: domain.OIDCAuth{
			IssuerURL:    input.IssuerURL,
			SubjectClaim: input.SubjectClaim,
			SubjectValue: input.SubjectValue,
		},
		ServiceOID: input.ServiceOID,
		TTLSeconds: input.TTLSeconds,
		Plaintext:  plaintext,
	}
	if err := s.specs.Create(c.Request.Context(), spec); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleGetSpec(c *gin.Context) {
	spec, err := s.specs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           spec.ID,
		"orgName":      spec.OrgName,
		"memberId":     spec.MemberID,
		"issuerUrl":    spec.Auth.IssuerURL,
		"subjectClaim": spec.Auth.SubjectClaim,
		"subjectValue": spec.Auth.SubjectValue,
		"serviceOid":   spec.ServiceOID,
		"ttlSeconds":   spec.TTLSeconds,
		"plaintext":    base64.StdEncoding.EncodeToString(spec.Plaintext),
	})
}

func (s *Server) handleDeleteSpec(c *gin.Context) {
	if err := s.specs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) requireAdminKey(c *gin.Context) {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key not configured")
		c.Abort()
		return
	}
	provided := c.GetHeader("X-Admin-Api-Key")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		c.Abort()
		return
	}
	c.Next()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeError is the boundary's translation table: dependency failures come
// back retryable, everything else terminal.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrSpecNotFound):
		status, code = http.StatusNotFound, "SIGNATURE_SPEC_NOT_FOUND"
	case errors.Is(err, domain.ErrOrgNotFound):
		status, code = http.StatusNotFound, "ORG_NOT_FOUND"
	case errors.Is(err, domain.ErrMemberNotFound):
		status, code = http.StatusNotFound, "MEMBER_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidJWT):
		status, code = http.StatusUnauthorized, "INVALID_JWT"
	case errors.Is(err, domain.ErrExpiredJWT):
		status, code = http.StatusUnauthorized, "EXPIRED_JWT"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code = http.StatusForbidden, "POLICY_DENIED"
	case errors.Is(err, domain.ErrOrgAlreadyExists):
		status, code = http.StatusConflict, "ORG_ALREADY_EXISTS"
	case errors.Is(err, domain.ErrJWKSRetrieval):
		status, code = http.StatusServiceUnavailable, "JWKS_RETRIEVAL_ERROR"
	case errors.Is(err, domain.ErrDNSSECRetrieval):
		status, code = http.StatusServiceUnavailable, "DNSSEC_CHAIN_RETRIEVAL_FAILED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
