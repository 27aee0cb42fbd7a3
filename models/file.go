package models

import "io"

// FileAsset 서버에 업로드된 파일 메타데이터
type FileAsset struct {
	ID             string `json:"id"`
	OriginalName   string `json:"original_name"`
	StoredName     string `json:"stored_name"`
	MimeType       string `json:"mime_type"`
	FileSize       int64  `json:"file_size"`
	Checksum       string `json:"checksum,omitempty"`
	StoragePath    string `json:"storage_path"`
	Revision       int    `json:"revision"`
	Status         string `json:"status"`
	IsChild        bool   `json:"is_child"`
	ParentID       string `json:"parent_id,omitempty"`
	ParentRevision int    `json:"parent_revision,omitempty"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
	CreatedAt      string `json:"created_at"`
	URL            string `json:"url,omitempty"`
}

// FileUploadRequest 업로드 요청 (multipart 필드에서 구성)
type FileUploadRequest struct {
	OriginalName   string
	ContentType    string
	Status         string
	IsChild        bool
	ParentID       string
	ParentRevision int
	Content        io.Reader
}

// FileUploadResult 업로드 결과 응답
type FileUploadResult struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Revision int    `json:"revision"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	Checksum string `json:"checksum"`
}

// MediaLink 서명된 미디어 링크
type MediaLink struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
