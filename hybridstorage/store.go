package hybridstorage

import (
	"context"
	"errors"

	"miniplm/models"
)

var (
	// ErrQuotaExceeded 로컬 저장소 용량 초과
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrRemoteUnavailable 원격 저장소 통신 실패
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrKeyNotFound 키가 존재하지 않음
	ErrKeyNotFound = errors.New("key not found")
)

// KeyValueStore is the local durable string store. Set reports ErrQuotaExceeded when the
// value does not fit.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Remote is the authoritative product store.
type Remote interface {
	SaveProducts(ctx context.Context, products []models.Product) error
	LoadProducts(ctx context.Context) ([]models.Product, error)
}

// 로컬 키 레이아웃
const (
	KeyProducts             = "products"
	KeySelectedProductIndex = "selectedProductIndex"
	KeyFileCachePrefix      = "fileCache_"
	KeyFileCacheCount       = KeyFileCachePrefix + "count"
)
