package utils

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	secretMu  sync.RWMutex
	jwtSecret = []byte(getJWTSecret())
)

// ErrInvalidMediaToken 미디어 토큰 검증 실패
var ErrInvalidMediaToken = errors.New("invalid media token")

func getJWTSecret() string {
	if v := os.Getenv("MINIPLM_MEDIA_SECRET"); v != "" {
		return v
	}
	return "change-this-media-secret"
}

// SetMediaSecret overrides the signing key, typically from configuration.
func SetMediaSecret(secret string) {
	if secret == "" {
		return
	}
	secretMu.Lock()
	jwtSecret = []byte(secret)
	secretMu.Unlock()
}

func mediaSecret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// MediaClaims 미디어 링크 클레임
type MediaClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// SignMediaToken 미디어 파일 접근 토큰 생성
func SignMediaToken(name string, ttl time.Duration) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, errors.New("name is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	expirationTime := time.Now().Add(ttl)

	claims := &MediaClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "media",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(mediaSecret())
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expirationTime, nil
}

// ValidateMediaToken checks the signature, expiry and that the token was issued for name.
func ValidateMediaToken(tokenString, name string) error {
	claims := &MediaClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return mediaSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return errors.Join(ErrInvalidMediaToken, err)
	}

	if !token.Valid || claims.Name != name {
		return ErrInvalidMediaToken
	}
	return nil
}
