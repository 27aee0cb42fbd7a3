package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GenerateID 시간 순 정렬이 가능한 ID 생성 (UUIDv7)
func GenerateID(prefix string) (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	id := u.String()
	if prefix != "" {
		return fmt.Sprintf("%s-%s", prefix, id), nil
	}
	return id, nil
}

// MustGenerateID panics only if the system entropy source fails.
func MustGenerateID(prefix string) string {
	id, err := GenerateID(prefix)
	if err != nil {
		panic(err)
	}
	return id
}

// Checksum sha256 16진수 체크섬
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashPassword 비밀번호 해싱
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
