package transport

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeValidator(t *testing.T) (*Validator, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}

	path := filepath.Join(t.TempDir(), "jwt.pub")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o644))

	v, err := LoadValidator(path)
	require.NoError(t, err)
	return v, priv
}

func signToken(t *testing.T, priv ed25519.PrivateKey, subject string) string {
	t.Helper()
	claims := GateClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func TestValidator_ValidToken(t *testing.T) {
	v, priv := writeValidator(t)
	subject, err := v.Validate(signToken(t, priv, "user-42"))
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestValidator_WrongKeyRejected(t *testing.T) {
	v, _ := writeValidator(t)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = v.Validate(signToken(t, otherPriv, "user-1"))
	assert.Error(t, err)
}

func TestValidator_EmptySubjectRejected(t *testing.T) {
	v, priv := writeValidator(t)
	_, err := v.Validate(signToken(t, priv, ""))
	assert.Error(t, err)
}

func TestRequireBearer_NilValidatorPassesThrough(t *testing.T) {
	handler := RequireBearer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireBearer_MissingHeaderRejected(t *testing.T) {
	v, _ := writeValidator(t)
	handler := RequireBearer(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBearer_ValidTokenAttachesSubject(t *testing.T) {
	v, priv := writeValidator(t)
	var gotSubject string
	handler := RequireBearer(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, priv, "user-7"))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", gotSubject)
}
