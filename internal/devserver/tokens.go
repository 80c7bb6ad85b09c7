package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"charchat-client/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// claims - полезная нагрузка токенов devserver.
type claims struct {
	TokenType string   `json:"typ"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenIssuer(cfg *Config) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// issue выпускает пару токенов. Возвращает jti refresh токена для отзыва.
func (t *tokenIssuer) issue(user *models.User) (models.TokenPair, string, error) {
	now := t.now()
	access, err := t.sign(user, tokenTypeAccess, uuid.NewString(), now, now.Add(t.accessTTL))
	if err != nil {
		return models.TokenPair{}, "", err
	}
	refreshID := uuid.NewString()
	refresh, err := t.sign(user, tokenTypeRefresh, refreshID, now, now.Add(t.refreshTTL))
	if err != nil {
		return models.TokenPair{}, "", err
	}
	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(t.accessTTL).UTC(),
	}, refreshID, nil
}

func (t *tokenIssuer) sign(user *models.User, typ, id string, now, exp time.Time) (string, error) {
	c := claims{
		TokenType: typ,
		Roles:     user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// verify проверяет подпись, срок и тип токена.
func (t *tokenIssuer) verify(tokenString, wantType string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, models.ErrTokenMalformed
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, models.ErrUnauthorized
	}
	if c.TokenType != wantType {
		return nil, fmt.Errorf("%w: expected %s token", models.ErrUnauthorized, wantType)
	}
	return c, nil
}
