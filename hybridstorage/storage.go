package hybridstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"miniplm/logger"
	"miniplm/models"
)

// DefaultChunkSize 캐시 청크당 항목 수
const DefaultChunkSize = 5

// Source 로드된 트리의 출처
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// LoadResult carries the rejoined tree and where its structure came from. RemoteErr is set
// when the remote store failed and the tree came from the local fallback.
type LoadResult struct {
	Products  []models.Product
	Source    Source
	RemoteErr error
}

// Storage mirrors the product tree to a remote store and keeps blob payloads in a local
// chunked cache. It does not serialize concurrent Save calls; callers allow one
// structural mutation in flight at a time.
type Storage struct {
	remote    Remote
	local     KeyValueStore
	chunkSize int
}

// New creates the sync layer. remote may be nil for local-only use.
func New(remote Remote, local KeyValueStore, chunkSize int) *Storage {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Storage{remote: remote, local: local, chunkSize: chunkSize}
}

// StripFileData returns a deep copy of products without inline payloads.
func StripFileData(products []models.Product) []models.Product {
	return models.StripInlineBlobs(products)
}

// Save sends the stripped tree to the remote store, then caches the payloads locally
// whatever the outcome. On remote failure the stripped tree is also written to local
// storage and an error wrapping ErrRemoteUnavailable is returned.
func (s *Storage) Save(ctx context.Context, products []models.Product) error {
	stripped := StripFileData(products)

	var remoteErr error
	if s.remote == nil {
		remoteErr = fmt.Errorf("%w: no remote configured", ErrRemoteUnavailable)
	} else if err := s.remote.SaveProducts(ctx, stripped); err != nil {
		remoteErr = asRemoteErr(err)
	}

	s.cacheFileData(ctx, products)

	if remoteErr == nil {
		logger.Debug("[hybridstorage] saved %d product(s) to remote", len(products))
		return nil
	}

	if s.remote != nil {
		logger.WithFields(map[string]interface{}{
			"products": len(products),
			"error":    remoteErr,
		}).Warn("[hybridstorage] remote save failed, saving locally")
	}
	if err := s.SaveLocally(ctx, stripped); err != nil {
		logger.Error("[hybridstorage] local fallback failed: %v", err)
	}
	return remoteErr
}

// SaveLocally writes the stripped tree under the products key. A quota error clears the
// local cache and retries once with a structure-only tree; the error of that retry is
// returned, never a second fallback.
func (s *Storage) SaveLocally(ctx context.Context, products []models.Product) error {
	stripped := StripFileData(products)
	data, err := json.Marshal(stripped)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}

	err = s.local.Set(ctx, KeyProducts, string(data))
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	logger.Warn("[hybridstorage] local storage full, clearing cache and saving minimal data")
	s.ClearCache(ctx)

	minimal := make([]models.Product, len(products))
	for i, p := range products {
		minimal[i] = p.Minimal()
	}
	data, err = json.Marshal(minimal)
	if err != nil {
		return fmt.Errorf("encode minimal products: %w", err)
	}
	if err := s.local.Set(ctx, KeyProducts, string(data)); err != nil {
		logger.Error("[hybridstorage] failed to save even minimal data: %v", err)
		return err
	}
	return nil
}

// Load fetches the tree from the remote store, falling back to the local copy when the
// remote fails or holds no products. Either way the tree is rejoined with cached blobs.
func (s *Storage) Load(ctx context.Context) LoadResult {
	var remoteErr error
	if s.remote != nil {
		products, err := s.remote.LoadProducts(ctx)
		switch {
		case err != nil:
			remoteErr = asRemoteErr(err)
			logger.Warn("[hybridstorage] remote load failed, using local data: %v", err)
		case len(products) == 0:
			logger.Info("[hybridstorage] remote has no products, using local data")
		default:
			return LoadResult{Products: s.RestoreFileData(ctx, products), Source: SourceRemote}
		}
	}

	products, source := s.loadLocally(ctx)
	return LoadResult{Products: products, Source: source, RemoteErr: remoteErr}
}

func (s *Storage) loadLocally(ctx context.Context) ([]models.Product, Source) {
	raw, err := s.local.Get(ctx, KeyProducts)
	if err == nil {
		var products []models.Product
		if err := json.Unmarshal([]byte(raw), &products); err == nil && len(products) > 0 {
			return s.RestoreFileData(ctx, products), SourceLocal
		} else if err != nil {
			logger.Error("[hybridstorage] failed to parse local products: %v", err)
		}
	} else if !errors.Is(err, ErrKeyNotFound) {
		logger.Error("[hybridstorage] failed to read local products: %v", err)
	}

	return []models.Product{models.NewProduct(models.DefaultProductName)}, SourceDefault
}

type cacheEntry struct {
	id   string
	blob string
}

// collectBlobs lists inline payloads by file id (current revision) and by revision id,
// in stage order.
func collectBlobs(products []models.Product) []cacheEntry {
	seen := make(map[string]struct{})
	var entries []cacheEntry
	add := func(id, blob string) {
		if id == "" || !models.IsInlineBlob(blob) {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		entries = append(entries, cacheEntry{id: id, blob: blob})
	}

	for _, p := range products {
		for _, label := range stageOrder(p) {
			for _, f := range p.FilesByStage[label] {
				add(f.ID, f.BlobRef())
				for _, r := range f.Revisions {
					add(r.ID, r.BlobRef)
				}
			}
		}
	}
	return entries
}

func stageOrder(p models.Product) []string {
	labels := make([]string, 0, len(p.FilesByStage))
	known := make(map[string]struct{}, len(p.StageIcons))
	for _, m := range p.StageIcons {
		if _, ok := p.FilesByStage[m.Label]; ok {
			labels = append(labels, m.Label)
			known[m.Label] = struct{}{}
		}
	}
	var extra []string
	for label := range p.FilesByStage {
		if _, ok := known[label]; !ok {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	return append(labels, extra...)
}

func chunkKey(i int) string {
	return KeyFileCachePrefix + strconv.Itoa(i)
}

// cacheFileData rewrites the blob cache in chunks of chunkSize entries. A chunk that
// cannot be written is skipped.
func (s *Storage) cacheFileData(ctx context.Context, products []models.Product) {
	entries := collectBlobs(products)
	prevCount := s.chunkCount(ctx)

	count := (len(entries) + s.chunkSize - 1) / s.chunkSize
	for i := 0; i < count; i++ {
		end := (i + 1) * s.chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := make(map[string]string, end-i*s.chunkSize)
		for _, e := range entries[i*s.chunkSize : end] {
			chunk[e.id] = e.blob
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			logger.Warn("[hybridstorage] failed to encode cache chunk %d: %v", i, err)
			continue
		}
		if err := s.local.Set(ctx, chunkKey(i), string(data)); err != nil {
			logger.Warn("[hybridstorage] failed to cache chunk %d: %v", i, err)
			s.local.Remove(ctx, chunkKey(i))
		}
	}

	if err := s.local.Set(ctx, KeyFileCacheCount, strconv.Itoa(count)); err != nil {
		logger.Warn("[hybridstorage] failed to store cache chunk count: %v", err)
		return
	}
	for i := count; i < prevCount; i++ {
		s.local.Remove(ctx, chunkKey(i))
	}
}

func (s *Storage) chunkCount(ctx context.Context) int {
	raw, err := s.local.Get(ctx, KeyFileCacheCount)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Storage) readCache(ctx context.Context) map[string]string {
	cache := make(map[string]string)
	count := s.chunkCount(ctx)
	for i := 0; i < count; i++ {
		raw, err := s.local.Get(ctx, chunkKey(i))
		if err != nil {
			if !errors.Is(err, ErrKeyNotFound) {
				logger.Warn("[hybridstorage] failed to load cache chunk %d: %v", i, err)
			}
			continue
		}
		var chunk map[string]string
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			logger.Warn("[hybridstorage] failed to parse cache chunk %d: %v", i, err)
			continue
		}
		for k, v := range chunk {
			cache[k] = v
		}
	}
	return cache
}

// RestoreFileData returns a deep copy of products with empty blob references filled from
// the local cache by revision id. Revisions without an id (trees written before revisions
// carried ids) fall back to the file id for the current revision. Entries missing from the
// cache keep an empty reference.
func (s *Storage) RestoreFileData(ctx context.Context, products []models.Product) []models.Product {
	cache := s.readCache(ctx)
	out := make([]models.Product, len(products))
	for i, p := range products {
		cp := p.DeepCopy()
		for _, files := range cp.FilesByStage {
			for fi := range files {
				f := &files[fi]
				for ri := range f.Revisions {
					r := &f.Revisions[ri]
					if r.BlobRef != "" {
						continue
					}
					if r.ID != "" {
						r.BlobRef = cache[r.ID]
					} else if r.RevisionNumber == f.CurrentRevisionNumber {
						r.BlobRef = cache[f.ID]
					}
				}
			}
		}
		out[i] = cp
	}
	return out
}

// ClearCache removes every cache chunk, the chunk count and the stored products.
func (s *Storage) ClearCache(ctx context.Context) {
	count := s.chunkCount(ctx)
	for i := 0; i < count; i++ {
		s.local.Remove(ctx, chunkKey(i))
	}
	s.local.Remove(ctx, KeyFileCacheCount)
	s.local.Remove(ctx, KeyProducts)
}

// SaveSelectedProductIndex 선택된 제품 인덱스 저장
func (s *Storage) SaveSelectedProductIndex(ctx context.Context, index int) error {
	return s.local.Set(ctx, KeySelectedProductIndex, strconv.Itoa(index))
}

// LoadSelectedProductIndex returns 0 when nothing valid is stored.
func (s *Storage) LoadSelectedProductIndex(ctx context.Context) int {
	raw, err := s.local.Get(ctx, KeySelectedProductIndex)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func asRemoteErr(err error) error {
	if errors.Is(err, ErrRemoteUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
}
