package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hrmspro/backend/internal/apperr"
	"hrmspro/backend/internal/cache"
	"hrmspro/backend/internal/models"
	"hrmspro/backend/internal/repositories"
)

// AuthService turns identity-provider bearer tokens into principals backed
// by a local shadow user.
type AuthService interface {
	ResolvePrincipal(ctx context.Context, bearer string) (models.Principal, error)
	EnsureUser(ctx context.Context, email string, role models.Role) (*models.User, error)
	IssueToken(user *models.User, ttl time.Duration) (string, error)
}

type AuthConfig struct {
	// Secret verifies and signs HS256 tokens.
	Secret string
	// PublicKeyPEM verifies RS256 tokens from the identity provider.
	PublicKeyPEM string
	Issuer       string
	Audience     string
	TokenTTL     time.Duration
	CacheTTL     time.Duration
}

type AuthServiceImpl struct {
	store     repositories.Store
	cache     cache.Cache
	config    AuthConfig
	publicKey *rsa.PublicKey
}

func NewAuthService(store repositories.Store, userCache cache.Cache, config AuthConfig) (*AuthServiceImpl, error) {
	s := &AuthServiceImpl{store: store, cache: userCache, config: config}
	if config.PublicKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("invalid identity provider public key: %w", err)
		}
		s.publicKey = key
	}
	if s.config.TokenTTL <= 0 {
		s.config.TokenTTL = time.Hour
	}
	if s.config.CacheTTL <= 0 {
		s.config.CacheTTL = 10 * time.Minute
	}
	if config.Secret == "" && s.publicKey == nil {
		return nil, errors.New("auth needs a secret or a public key")
	}
	return s, nil
}

func userCacheKey(email string) string {
	return "user:email:" + email
}

func (s *AuthServiceImpl) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if s.config.Secret == "" {
			return nil, errors.New("HS256 tokens are not accepted")
		}
		return []byte(s.config.Secret), nil
	case *jwt.SigningMethodRSA:
		if s.publicKey == nil {
			return nil, errors.New("RS256 tokens are not accepted")
		}
		return s.publicKey, nil
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

// roleFromClaims reads a "role" claim, falling back to realm roles. Unknown
// or missing roles default to OPERATOR.
func roleFromClaims(claims jwt.MapClaims) models.Role {
	if raw, ok := claims["role"].(string); ok {
		if role, ok := models.ParseRole(raw); ok {
			return role
		}
	}
	if realm, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := realm["roles"].([]interface{}); ok {
			for _, candidate := range []models.Role{models.RoleProjectManager, models.RoleManager, models.RoleOperator} {
				for _, r := range roles {
					if name, ok := r.(string); ok && strings.EqualFold(name, string(candidate)) {
						return candidate
					}
				}
			}
		}
	}
	return models.RoleOperator
}

func (s *AuthServiceImpl) ResolvePrincipal(ctx context.Context, bearer string) (models.Principal, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return models.Principal{}, apperr.Unauthenticated("missing bearer token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256"}), jwt.WithExpirationRequired()}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, s.keyFunc, opts...); err != nil {
		return models.Principal{}, apperr.Unauthenticated("invalid or expired token")
	}

	email, _ := claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Principal{}, apperr.Unauthenticated("token carries no email")
	}

	user, err := s.EnsureUser(ctx, email, roleFromClaims(claims))
	if err != nil {
		return models.Principal{}, err
	}
	return user.Principal(), nil
}

// EnsureUser finds the shadow user for email or creates it with role. The
// stored record is authoritative once it exists.
func (s *AuthServiceImpl) EnsureUser(ctx context.Context, email string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	key := userCacheKey(email)

	var cached models.User
	if s.cache != nil && s.cache.Get(key, &cached) == nil {
		return &cached, nil
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		user = &models.User{Email: email, Role: role}
		err = s.store.CreateUser(ctx, user)
		if errors.Is(err, repositories.ErrDuplicate) {
			// created concurrently by another request
			user, err = s.store.FindUserByEmail(ctx, email)
		} else if err == nil {
			log.Printf("👤 Created shadow user %s (%s)", email, role)
		}
	}
	if err != nil {
		return nil, storeErr(err, "user")
	}

	if s.cache != nil {
		if err := s.cache.Set(key, user, s.config.CacheTTL); err != nil {
			log.Printf("⚠️  Failed to cache user %s: %v", email, err)
		}
	}
	return user, nil
}

// IssueToken mints an HS256 token for development and tooling.
func (s *AuthServiceImpl) IssueToken(user *models.User, ttl time.Duration) (string, error) {
	if s.config.Secret == "" {
		return "", errors.New("no signing secret configured")
	}
	if ttl <= 0 {
		ttl = s.config.TokenTTL
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"id":    user.ID.String(),
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}
	if s.config.Audience != "" {
		claims["aud"] = s.config.Audience
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
