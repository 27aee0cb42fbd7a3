package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FileStatus 파일 워크플로 상태
type FileStatus string

const (
	StatusInWork   FileStatus = "In-Work"
	StatusReview   FileStatus = "Review"
	StatusReleased FileStatus = "Released"
)

// ParseStatus accepts the display form as well as the snake_case form the upload API sends.
func ParseStatus(s string) (FileStatus, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-")) {
	case "in-work", "inwork":
		return StatusInWork, nil
	case "review":
		return StatusReview, nil
	case "released":
		return StatusReleased, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Revision 파일 리비전 스냅샷
type Revision struct {
	ID                string     `json:"id,omitempty"`
	RevisionNumber    int        `json:"revisionNumber"`
	Name              string     `json:"name"`
	UploadTimestamp   string     `json:"uploadTimestamp"`
	ByteSize          int64      `json:"byteSize"`
	MimeType          string     `json:"mimeType"`
	BlobRef           string     `json:"blobRef,omitempty"`
	RemoteID          string     `json:"remoteId,omitempty"` // 서버 파일 ID (업로드 성공 시)
	Status            FileStatus `json:"status"`
	Price             string     `json:"price"`
	Quantity          *int       `json:"quantity"`
	ChangeDescription string     `json:"changeDescription"`
	ChildFileIDs      []string   `json:"childFileIds,omitempty"`
}

// Clone copies the revision including its slices and pointers.
func (r Revision) Clone() Revision {
	out := r
	if r.Quantity != nil {
		q := *r.Quantity
		out.Quantity = &q
	}
	if r.ChildFileIDs != nil {
		out.ChildFileIDs = append([]string(nil), r.ChildFileIDs...)
	}
	return out
}

// FileNode is a parent file or a child file attached to one of its parent's revisions.
//
// Every user-visible field lives on the revisions; the accessors read them from the
// current revision, so the file, its selected revision and revisions[current] can never
// disagree.
type FileNode struct {
	ID                         string
	IsChildFile                bool
	ParentID                   string
	ParentRevisionAtAttachment int
	CurrentRevisionNumber      int
	Revisions                  []Revision
}

// Current 현재 리비전 (없으면 zero 값)
func (f FileNode) Current() Revision {
	r, _ := f.Revision(f.CurrentRevisionNumber)
	return r
}

// SelectedRevision is an alias of Current kept for the wire contract.
func (f FileNode) SelectedRevision() Revision { return f.Current() }

// Revision 번호로 리비전 조회
func (f FileNode) Revision(number int) (Revision, bool) {
	if number < 1 || number > len(f.Revisions) {
		return Revision{}, false
	}
	r := f.Revisions[number-1]
	if r.RevisionNumber != number {
		// 순서가 깨진 경우 선형 검색
		for _, rr := range f.Revisions {
			if rr.RevisionNumber == number {
				return rr, true
			}
		}
		return Revision{}, false
	}
	return r, true
}

func (f FileNode) Name() string              { return f.Current().Name }
func (f FileNode) UploadTimestamp() string   { return f.Current().UploadTimestamp }
func (f FileNode) ByteSize() int64           { return f.Current().ByteSize }
func (f FileNode) MimeType() string          { return f.Current().MimeType }
func (f FileNode) BlobRef() string           { return f.Current().BlobRef }
func (f FileNode) Status() FileStatus        { return f.Current().Status }
func (f FileNode) Price() string             { return f.Current().Price }
func (f FileNode) ChangeDescription() string { return f.Current().ChangeDescription }

// Quantity is only meaningful on parent files.
func (f FileNode) Quantity() *int { return f.Current().Quantity }

// ChildFileIDs 현재 리비전에 연결된 자식 파일 ID
func (f FileNode) ChildFileIDs() []string { return f.Current().ChildFileIDs }

// RevisionCount 리비전 개수
func (f FileNode) RevisionCount() int { return len(f.Revisions) }

// Clone deep-copies the revision list.
func (f FileNode) Clone() FileNode {
	out := f
	out.Revisions = make([]Revision, len(f.Revisions))
	for i, r := range f.Revisions {
		out.Revisions[i] = r.Clone()
	}
	return out
}

// Validate checks the revision numbering invariant.
func (f FileNode) Validate() error {
	if len(f.Revisions) == 0 {
		return fmt.Errorf("file %s has no revisions", f.ID)
	}
	for i, r := range f.Revisions {
		if r.RevisionNumber != i+1 {
			return fmt.Errorf("file %s: revision at position %d is numbered %d", f.ID, i+1, r.RevisionNumber)
		}
	}
	if f.CurrentRevisionNumber < 1 || f.CurrentRevisionNumber > len(f.Revisions) {
		return fmt.Errorf("file %s: current revision %d out of range", f.ID, f.CurrentRevisionNumber)
	}
	if f.IsChildFile && f.ParentID == "" {
		return fmt.Errorf("child file %s has no parent", f.ID)
	}
	return nil
}

// fileNodeJSON is the wire form; the top-level copies and selectedRevision are emitted for
// readers but ignored on decode.
type fileNodeJSON struct {
	ID                         string     `json:"id"`
	Name                       string     `json:"name"`
	UploadTimestamp            string     `json:"uploadTimestamp"`
	ByteSize                   int64      `json:"byteSize"`
	MimeType                   string     `json:"mimeType"`
	BlobRef                    string     `json:"blobRef,omitempty"`
	Status                     FileStatus `json:"status"`
	Price                      string     `json:"price"`
	Quantity                   *int       `json:"quantity,omitempty"`
	ChangeDescription          string     `json:"changeDescription"`
	CurrentRevisionNumber      int        `json:"currentRevisionNumber"`
	Revisions                  []Revision `json:"revisions"`
	SelectedRevision           *Revision  `json:"selectedRevision,omitempty"`
	IsChildFile                bool       `json:"isChildFile"`
	ChildFileIDs               []string   `json:"childFileIds,omitempty"`
	ParentID                   string     `json:"parentId,omitempty"`
	ParentRevisionAtAttachment int        `json:"parentRevisionAtAttachment,omitempty"`
}

// MarshalJSON 파생 필드를 포함한 JSON 인코딩
func (f FileNode) MarshalJSON() ([]byte, error) {
	cur := f.Current()
	w := fileNodeJSON{
		ID:                         f.ID,
		Name:                       cur.Name,
		UploadTimestamp:            cur.UploadTimestamp,
		ByteSize:                   cur.ByteSize,
		MimeType:                   cur.MimeType,
		BlobRef:                    cur.BlobRef,
		Status:                     cur.Status,
		Price:                      cur.Price,
		ChangeDescription:          cur.ChangeDescription,
		CurrentRevisionNumber:      f.CurrentRevisionNumber,
		Revisions:                  f.Revisions,
		IsChildFile:                f.IsChildFile,
		ParentID:                   f.ParentID,
		ParentRevisionAtAttachment: f.ParentRevisionAtAttachment,
	}
	if w.Revisions == nil {
		w.Revisions = []Revision{}
	}
	if len(f.Revisions) > 0 {
		w.SelectedRevision = &cur
	}
	if !f.IsChildFile {
		w.Quantity = cur.Quantity
		w.ChildFileIDs = cur.ChildFileIDs
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the node from its revisions. A payload without revisions
// (an entry created by an older client) becomes revision 1 built from the top-level fields.
func (f *FileNode) UnmarshalJSON(data []byte) error {
	var w fileNodeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*f = FileNode{
		ID:                         w.ID,
		IsChildFile:                w.IsChildFile,
		ParentID:                   w.ParentID,
		ParentRevisionAtAttachment: w.ParentRevisionAtAttachment,
		CurrentRevisionNumber:      w.CurrentRevisionNumber,
		Revisions:                  w.Revisions,
	}

	if len(f.Revisions) == 0 {
		status := w.Status
		if status == "" {
			status = StatusInWork
		}
		f.Revisions = []Revision{{
			ID:                w.ID,
			RevisionNumber:    1,
			Name:              w.Name,
			UploadTimestamp:   w.UploadTimestamp,
			ByteSize:          w.ByteSize,
			MimeType:          w.MimeType,
			BlobRef:           w.BlobRef,
			Status:            status,
			Price:             w.Price,
			Quantity:          w.Quantity,
			ChangeDescription: w.ChangeDescription,
			ChildFileIDs:      w.ChildFileIDs,
		}}
	}
	if f.CurrentRevisionNumber < 1 || f.CurrentRevisionNumber > len(f.Revisions) {
		f.CurrentRevisionNumber = len(f.Revisions)
	}
	return nil
}
