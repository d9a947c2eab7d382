package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the algorithm used by a [Signer].
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// Config configures a [Signer].
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

// Claims is the access-token claim set issued by the backend.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Signer issues and verifies access tokens.
//
// Signer instances are configured once and treated as immutable.
type Signer struct {
	config Config
	now    func() time.Time
}

// NewSigner validates cfg and returns a ready signer.
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) == 0 {
			priv, _ := parseEdPrivateKey(cfg.PrivateKey)
			cfg.PublicKey = priv.Public().(ed25519.PublicKey)
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Signer{config: cfg, now: time.Now}, nil
}

// WithClock returns a copy of s that stamps tokens using now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// TTL returns the configured access-token lifetime.
func (s *Signer) TTL() time.Duration { return s.config.AccessTTL }

// Issue signs an access token for userID. A zero ttl uses the configured
// AccessTTL; a negative ttl yields an already expired token.
func (s *Signer) Issue(userID, email string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.config.AccessTTL
	}
	now := s.now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	token := jwt.NewWithClaims(s.method(), claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}
	key, err := s.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

// Verify parses and validates an access token issued by s.
func (s *Signer) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method().Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		options = append(options, jwt.WithAudience(s.config.Audience))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if s.config.KeyID != "" {
			if kid, _ := t.Header["kid"].(string); kid != s.config.KeyID {
				return nil, fmt.Errorf("unknown kid %q", kid)
			}
		}
		return s.verifyKey()
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != "access" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (s *Signer) method() jwt.SigningMethod {
	if s.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (s *Signer) signKey() (interface{}, error) {
	if s.config.SigningMethod == MethodHS256 {
		return s.config.PrivateKey, nil
	}
	return parseEdPrivateKey(s.config.PrivateKey)
}

func (s *Signer) verifyKey() (interface{}, error) {
	if s.config.SigningMethod == MethodHS256 {
		return s.config.PrivateKey, nil
	}
	return parseEdPublicKey(s.config.PublicKey)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
