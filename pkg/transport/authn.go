package transport

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type subjectKey struct{}

// GateClaims is the minimal claim set this gate trusts: just a subject,
// attached to the request context for logging only. Unlike the teacher's
// HelmClaims, there is no tenant_id or roles — the decision never depends
// on who is calling, only on the request body, profile, and runtime.
type GateClaims struct {
	jwt.RegisteredClaims
}

// Validator verifies bearer JWTs against a single static public key loaded
// at startup. Grounded in core/pkg/auth/middleware.go's JWTValidator, but
// simplified to the gate's single-key, no-rotation needs.
type Validator struct {
	key crypto.PublicKey
}

// LoadValidator reads a PEM-encoded public key (PKIX, any of
// RSA/ECDSA/Ed25519) from path and returns a Validator bound to it.
func LoadValidator(path string) (*Validator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transport: read jwt public key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("transport: no PEM block in %s", path)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("transport: parse public key: %w", err)
	}
	return &Validator{key: pub}, nil
}

func (v *Validator) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
		return v.key, nil
	default:
		return nil, fmt.Errorf("transport: unexpected signing method %v", token.Header["alg"])
	}
}

// Validate parses and verifies a bearer token, returning its subject claim.
func (v *Validator) Validate(tokenStr string) (string, error) {
	claims := &GateClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keyFunc)
	if err != nil {
		return "", fmt.Errorf("transport: token validation failed: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("transport: invalid token")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("transport: token subject is required")
	}
	return claims.Subject, nil
}

// RequireBearer wraps next with bearer-JWT authentication. If validator is
// nil, authentication is considered unconfigured and every request passes
// through unauthenticated — the operator opts in by setting
// GATE_JWT_PUBLIC_KEY_PATH, matching the teacher's "nil validator means
// feature absent" convention rather than fail-closed-by-default, since
// auth here gates endpoint access, not the policy decision itself.
func RequireBearer(validator *Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}
			subject, err := validator.Validate(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext extracts the authenticated subject, if any. Logging
// only; never read by the gate orchestrator.
func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}
