package auth

import (
	"errors"
	"fmt"
	"time"

	"coursenotify/config"
	"coursenotify/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(cfg *config.JWTConfig, userID uint, username string) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    cfg.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.AccessSecret))
}

var ErrInvalidToken = errors.New("invalid token")

func ParseAccessToken(cfg *config.JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.AccessSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UnsubscribeClaims is the payload of a one-click unsubscribe link.
type UnsubscribeClaims struct {
	UserID  uint   `json:"user_id"`
	Channel string `json:"channel"`
	Value   bool   `json:"value"`
	jwt.RegisteredClaims
}

const unsubscribeAudience = "one-click-unsubscribe"

// GenerateUnsubscribeToken signs a link token that sets channel to value on every app of the user.
func GenerateUnsubscribeToken(cfg *config.UnsubscribeConfig, userID uint, channel string, value bool) (string, error) {
	switch channel {
	case domain.ChannelWeb, domain.ChannelEmail, domain.ChannelPush:
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownChannel, channel)
	}
	now := time.Now()
	claims := UnsubscribeClaims{
		UserID:  userID,
		Channel: channel,
		Value:   value,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			Audience:  jwt.ClaimStrings{unsubscribeAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

func ParseUnsubscribeToken(cfg *config.UnsubscribeConfig, tokenString string) (*UnsubscribeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UnsubscribeClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(unsubscribeAudience))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*UnsubscribeClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
