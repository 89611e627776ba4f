package devapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"
)

// Verifier checks bearer tokens.
// Modes: static (token must equal Token, or any non-empty token when Token is
// empty) and hmac (HS256 JWT signed with Secret, exp enforced).
type Verifier struct {
	Mode   string
	Token  string
	Secret []byte
	now    func() time.Time
}

// NewVerifierFromEnv reads DEVAPI_AUTH_MODE, DEVAPI_TOKEN and DEVAPI_HMAC_SECRET.
func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("DEVAPI_AUTH_MODE")))
	if mode == "" {
		mode = "static"
	}
	return &Verifier{
		Mode:   mode,
		Token:  os.Getenv("DEVAPI_TOKEN"),
		Secret: []byte(os.Getenv("DEVAPI_HMAC_SECRET")),
		now:    time.Now,
	}
}

var (
	errMissingToken = errors.New("missing bearer token")
	errBadToken     = errors.New("invalid token")
	errExpired      = errors.New("token expired")
)

// Verify returns the token subject.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingToken
	}
	switch v.Mode {
	case "static":
		if v.Token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(v.Token)) != 1 {
			return "", errBadToken
		}
		return "operator", nil
	case "hmac":
		return v.verifyHS256(token)
	default:
		return "", errors.New("unsupported auth mode")
	}
}

func (v *Verifier) verifyHS256(token string) (string, error) {
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return "", errBadToken
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return "", errBadToken
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return "", errBadToken
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return "", errBadToken
	}
	var hdr struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &hdr); err != nil || hdr.Alg != "HS256" {
		return "", errBadToken
	}
	mac := hmac.New(sha256.New, v.Secret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return "", errBadToken
	}
	var claims struct {
		Sub string `json:"sub"`
		Exp int64  `json:"exp"`
	}
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return "", errBadToken
	}
	now := time.Now
	if v.now != nil {
		now = v.now
	}
	if claims.Exp != 0 && now().Unix() >= claims.Exp {
		return "", errExpired
	}
	if claims.Sub == "" {
		claims.Sub = "operator"
	}
	return claims.Sub, nil
}

// IssueToken signs an HS256 token for sub valid for ttl.
func IssueToken(secret []byte, sub string, ttl time.Duration) (string, error) {
	hdr, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	claims := map[string]any{"sub": sub, "iat": time.Now().Unix()}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	input := b64urlEncode(hdr) + "." + b64urlEncode(payload)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(input))
	return input + "." + b64urlEncode(mac.Sum(nil)), nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
func b64urlEncode(b []byte) string          { return base64.RawURLEncoding.EncodeToString(b) }
