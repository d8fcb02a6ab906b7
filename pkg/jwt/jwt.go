package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("no signing key configured")
)

// Claims represents the access token claims issued by the account service.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Identity returns the user id carried by the token, falling back to the subject.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Config selects the verification scheme. Secret enables HS256; PublicKeyPEM enables RS256.
// PrivateKeyPEM is only needed to issue RS256 tokens.
type Config struct {
	Secret        string        `mapstructure:"secret"`
	PublicKeyPEM  string        `mapstructure:"public_key"`
	PrivateKeyPEM string        `mapstructure:"private_key"`
	Issuer        string        `mapstructure:"issuer"`
	Leeway        time.Duration `mapstructure:"leeway"`
}

// Manager verifies (and for development, issues) access tokens.
type Manager struct {
	method    jwt.SigningMethod
	verifyKey interface{}
	signKey   interface{}
	issuer    string
	leeway    time.Duration
}

// NewManager creates a new JWT manager.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{issuer: cfg.Issuer, leeway: cfg.Leeway}

	switch {
	case cfg.PublicKeyPEM != "":
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse rsa public key: %w", err)
		}
		m.method = jwt.SigningMethodRS256
		m.verifyKey = pub
		if cfg.PrivateKeyPEM != "" {
			priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
			if err != nil {
				return nil, fmt.Errorf("failed to parse rsa private key: %w", err)
			}
			m.signKey = priv
		}
	case cfg.Secret != "":
		m.method = jwt.SigningMethodHS256
		m.verifyKey = []byte(cfg.Secret)
		m.signKey = []byte(cfg.Secret)
	default:
		return nil, ErrMissingKey
	}

	return m, nil
}

// ValidateToken validates a token and returns claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.verifyKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Identity() == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateToken issues an access token. Used by the development CLI and tests.
func (m *Manager) GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	if m.signKey == nil {
		return "", ErrMissingKey
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
}
