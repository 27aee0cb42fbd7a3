package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"miniplm/logger"
	"miniplm/models"
	"miniplm/utils"
)

var (
	// ErrEmptyFileName은 업로드 파일 이름이 비어 있을 때 반환됩니다.
	ErrEmptyFileName = errors.New("file name is required")
	// ErrParentNotFound는 자식 파일 업로드 시 부모 파일이 없을 때 반환됩니다.
	ErrParentNotFound = errors.New("parent file not found")
	// ErrFileNotFound는 파일 메타데이터 또는 저장된 파일이 없을 때 반환됩니다.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidStatus는 지원하지 않는 상태 값일 때 반환됩니다.
	ErrInvalidStatus = errors.New("invalid status")
)

// FileService는 업로드된 파일 저장소에 대한 비즈니스 로직을 정의합니다.
type FileService interface {
	Upload(ctx context.Context, req models.FileUploadRequest, uploadedBy string) (models.FileAsset, error)
	Get(ctx context.Context, id string) (models.FileAsset, error)
	Latest(ctx context.Context, name string) (models.FileAsset, error)
	Resolve(ctx context.Context, name, id string) (models.FileAsset, error)
	Open(ctx context.Context, asset models.FileAsset) (*os.File, error)
	DeleteOrphans(ctx context.Context, referenced map[string]struct{}, olderThan time.Time) (int, error)
}

type fileService struct {
	db       SQLExecutor
	mediaDir string
}

// NewFileService는 mediaDir 아래에 파일을 저장하는 FileService를 생성합니다.
func NewFileService(db SQLExecutor, mediaDir string) FileService {
	return &fileService{db: db, mediaDir: mediaDir}
}

// MediaURL은 파일 이름으로 미디어 경로를 만듭니다.
func MediaURL(name string) string {
	return "/media/" + url.PathEscape(name)
}

// AssetURL은 특정 업로드를 가리키는 미디어 경로를 만듭니다.
func AssetURL(name, id string) string {
	return MediaURL(name) + "?id=" + url.QueryEscape(id)
}

const fileColumns = `id, original_name, stored_name, mime_type, file_size, checksum, storage_path,
	revision, status, is_child, parent_id, parent_revision, uploaded_by, created_at`

func scanFile(row interface{ Scan(...any) error }) (models.FileAsset, error) {
	var (
		f       models.FileAsset
		isChild int
	)
	err := row.Scan(&f.ID, &f.OriginalName, &f.StoredName, &f.MimeType, &f.FileSize, &f.Checksum,
		&f.StoragePath, &f.Revision, &f.Status, &isChild, &f.ParentID, &f.ParentRevision,
		&f.UploadedBy, &f.CreatedAt)
	f.IsChild = isChild != 0
	f.URL = AssetURL(f.OriginalName, f.ID)
	return f, err
}

func (s *fileService) Upload(ctx context.Context, req models.FileUploadRequest, uploadedBy string) (models.FileAsset, error) {
	originalName := filepath.Base(strings.TrimSpace(req.OriginalName))
	if originalName == "" || originalName == "." || originalName == string(filepath.Separator) {
		return models.FileAsset{}, ErrEmptyFileName
	}

	status := models.StatusInWork
	if strings.TrimSpace(req.Status) != "" {
		st, err := models.ParseStatus(req.Status)
		if err != nil {
			return models.FileAsset{}, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
		}
		status = st
	}

	if req.IsChild {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE id = ? AND is_child = 0", req.ParentID).Scan(&n); err != nil {
			return models.FileAsset{}, err
		}
		if req.ParentID == "" || n == 0 {
			return models.FileAsset{}, fmt.Errorf("%w: %q", ErrParentNotFound, req.ParentID)
		}
	}

	fileID, err := utils.GenerateID("file")
	if err != nil {
		return models.FileAsset{}, err
	}

	now := utils.Now()
	ext := strings.ToLower(filepath.Ext(originalName))
	storedName := strings.ToLower(fileID) + ext
	relPath := filepath.ToSlash(filepath.Join(utils.MediaDir(now), storedName))
	absPath := filepath.Join(s.mediaDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return models.FileAsset{}, fmt.Errorf("create storage path: %w", err)
	}

	reader, mimeType := sniffContent(req.Content, req.ContentType, ext)

	dst, err := os.Create(absPath)
	if err != nil {
		return models.FileAsset{}, fmt.Errorf("store file: %w", err)
	}
	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hash), reader)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(absPath)
		return models.FileAsset{}, fmt.Errorf("save file: %w", err)
	}

	asset := models.FileAsset{
		ID:             fileID,
		OriginalName:   originalName,
		StoredName:     storedName,
		MimeType:       mimeType,
		FileSize:       size,
		Checksum:       hex.EncodeToString(hash.Sum(nil)),
		StoragePath:    relPath,
		Status:         string(status),
		IsChild:        req.IsChild,
		ParentID:       req.ParentID,
		ParentRevision: req.ParentRevision,
		UploadedBy:     uploadedBy,
		CreatedAt:      utils.FormatDateTimeForDB(now),
		URL:            AssetURL(originalName, fileID),
	}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		// 같은 이름(부모/자식 구분)의 업로드 수 + 1
		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM files WHERE original_name = ? AND is_child = ?",
			originalName, boolToInt(req.IsChild),
		).Scan(&count); err != nil {
			return err
		}
		asset.Revision = count + 1

		_, err := tx.ExecContext(ctx, `INSERT INTO files (`+fileColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			asset.ID, asset.OriginalName, asset.StoredName, asset.MimeType, asset.FileSize, asset.Checksum,
			asset.StoragePath, asset.Revision, asset.Status, boolToInt(asset.IsChild), asset.ParentID,
			asset.ParentRevision, asset.UploadedBy, asset.CreatedAt,
		)
		return err
	})
	if err != nil {
		os.Remove(absPath)
		return models.FileAsset{}, fmt.Errorf("persist file metadata: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"file_id":  asset.ID,
		"name":     asset.OriginalName,
		"revision": asset.Revision,
		"size":     asset.FileSize,
		"child":    asset.IsChild,
	}).Info("File uploaded")

	return asset, nil
}

// sniffContent는 MIME 타입을 결정합니다: 헤더 → 내용 스니핑 → 확장자 → octet-stream.
func sniffContent(r io.Reader, headerType, ext string) (io.Reader, string) {
	if r == nil {
		r = bytes.NewReader(nil)
	}
	mimeType := strings.TrimSpace(headerType)

	buf := make([]byte, 512)
	n, _ := io.ReadFull(r, buf)
	reader := io.MultiReader(bytes.NewReader(buf[:n]), r)

	if mimeType == "" && n > 0 {
		detected := http.DetectContentType(buf[:n])
		// 스니핑이 포기한 경우 확장자로 넘어간다
		if detected != "application/octet-stream" {
			mimeType = detected
		}
	}
	if mimeType == "" && ext != "" {
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return reader, mimeType
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *fileService) Get(ctx context.Context, id string) (models.FileAsset, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return models.FileAsset{}, ErrFileNotFound
	}
	return f, err
}

// Latest는 이름이 같은 업로드 중 가장 최근 것을 반환합니다.
func (s *fileService) Latest(ctx context.Context, name string) (models.FileAsset, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE original_name = ? ORDER BY created_at DESC, id DESC LIMIT 1", name))
	if err == sql.ErrNoRows {
		return models.FileAsset{}, ErrFileNotFound
	}
	return f, err
}

// Resolve returns the upload id when given, which must carry name, and the latest upload
// named name otherwise.
func (s *fileService) Resolve(ctx context.Context, name, id string) (models.FileAsset, error) {
	if id == "" {
		return s.Latest(ctx, name)
	}
	f, err := s.Get(ctx, id)
	if err != nil {
		return models.FileAsset{}, err
	}
	if f.OriginalName != name {
		return models.FileAsset{}, fmt.Errorf("%w: %s is not %s", ErrFileNotFound, id, name)
	}
	return f, nil
}

func (s *fileService) Open(_ context.Context, asset models.FileAsset) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.mediaDir, filepath.FromSlash(asset.StoragePath)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, asset.StoragePath)
	}
	return f, err
}

// DeleteOrphans는 olderThan 이전에 업로드되었고 어떤 제품 트리도 이름으로 참조하지 않는 파일을 삭제합니다.
func (s *fileService) DeleteOrphans(ctx context.Context, referenced map[string]struct{}, olderThan time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE created_at < ?", utils.FormatDateTimeForDB(olderThan))
	if err != nil {
		return 0, err
	}
	var orphans []models.FileAsset
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := referenced[f.OriginalName]; !ok {
			orphans = append(orphans, f)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range orphans {
		path := filepath.Join(s.mediaDir, filepath.FromSlash(f.StoragePath))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove orphaned file %s: %v", path, err)
			continue
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", f.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
