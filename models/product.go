package models

import (
	"fmt"
	"strings"
)

// MarkerType 스테이지 마커 종류
type MarkerType string

const (
	MarkerStage     MarkerType = "Stage"
	MarkerIteration MarkerType = "Iteration"
)

// LabelPrefix 마커 라벨 접두사 (S1, i1)
func (t MarkerType) LabelPrefix() string {
	if t == MarkerIteration {
		return "i"
	}
	return "S"
}

// ColorTag 마커 종류별 기본 색상
func (t MarkerType) ColorTag() string {
	if t == MarkerIteration {
		return "orange"
	}
	return "blue"
}

// Valid 지원하는 마커 종류인지 확인
func (t MarkerType) Valid() bool {
	return t == MarkerStage || t == MarkerIteration
}

// ParseMarkerType accepts "stage"/"iteration" in any case.
func ParseMarkerType(s string) (MarkerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stage", "s":
		return MarkerStage, nil
	case "iteration", "i":
		return MarkerIteration, nil
	}
	return "", fmt.Errorf("unknown marker type %q", s)
}

// StageMarker 제품 내 스테이지/이터레이션 표시
type StageMarker struct {
	Type           MarkerType `json:"type"`
	Label          string     `json:"label"`
	SequenceNumber int        `json:"sequenceNumber"`
	ColorTag       string     `json:"colorTag"`
}

// Product 제품 트리 (스테이지별 파일 목록 포함)
type Product struct {
	ID            string                `json:"id,omitempty"`
	Name          string                `json:"name"`
	StageIcons    []StageMarker         `json:"stageIcons"`
	SelectedStage *string               `json:"selectedStage"`
	FilesByStage  map[string][]FileNode `json:"filesByStage"`
}

// DefaultProductName is used when nothing has been stored yet.
const DefaultProductName = "Sample Product"

// NewProduct 빈 제품 생성
func NewProduct(name string) Product {
	return Product{
		Name:         name,
		StageIcons:   []StageMarker{},
		FilesByStage: map[string][]FileNode{},
	}
}

// Marker 라벨로 마커 조회
func (p Product) Marker(label string) (StageMarker, bool) {
	for _, m := range p.StageIcons {
		if m.Label == label {
			return m, true
		}
	}
	return StageMarker{}, false
}

// HasStage reports whether label names an existing marker.
func (p Product) HasStage(label string) bool {
	_, ok := p.Marker(label)
	return ok
}

// SelectedLabel 선택된 스테이지 라벨 (없으면 빈 문자열)
func (p Product) SelectedLabel() string {
	if p.SelectedStage == nil {
		return ""
	}
	return *p.SelectedStage
}

// CountMarkers 종류별 마커 개수
func (p Product) CountMarkers(t MarkerType) int {
	n := 0
	for _, m := range p.StageIcons {
		if m.Type == t {
			n++
		}
	}
	return n
}

// FindFile 모든 스테이지에서 파일 검색
func (p Product) FindFile(id string) (label string, index int, ok bool) {
	for _, m := range p.StageIcons {
		for i, f := range p.FilesByStage[m.Label] {
			if f.ID == id {
				return m.Label, i, true
			}
		}
	}
	return "", -1, false
}

// Validate checks the marker/file-list correspondence.
func (p Product) Validate() error {
	seen := make(map[string]struct{}, len(p.StageIcons))
	for _, m := range p.StageIcons {
		if _, dup := seen[m.Label]; dup {
			return fmt.Errorf("duplicate stage label %q", m.Label)
		}
		seen[m.Label] = struct{}{}
		if _, ok := p.FilesByStage[m.Label]; !ok {
			return fmt.Errorf("stage %q has no file list", m.Label)
		}
	}
	for label := range p.FilesByStage {
		if _, ok := seen[label]; !ok {
			return fmt.Errorf("orphaned file list %q", label)
		}
	}
	return nil
}

// Clone returns a copy sharing the file nodes but owning the marker slice and stage map.
// Callers replace the stage slices they change.
func (p Product) Clone() Product {
	out := p
	out.StageIcons = append(make([]StageMarker, 0, len(p.StageIcons)), p.StageIcons...)
	if p.SelectedStage != nil {
		s := *p.SelectedStage
		out.SelectedStage = &s
	}
	out.FilesByStage = make(map[string][]FileNode, len(p.FilesByStage))
	for k, v := range p.FilesByStage {
		out.FilesByStage[k] = v
	}
	return out
}

// DeepCopy copies every file and revision.
func (p Product) DeepCopy() Product {
	out := p.Clone()
	for k, files := range out.FilesByStage {
		copied := make([]FileNode, len(files))
		for i, f := range files {
			copied[i] = f.Clone()
		}
		out.FilesByStage[k] = copied
	}
	return out
}

// Minimal 파일 목록과 마커를 제거한 구조 전용 제품
func (p Product) Minimal() Product {
	return Product{
		ID:           p.ID,
		Name:         p.Name,
		StageIcons:   []StageMarker{},
		FilesByStage: map[string][]FileNode{},
	}
}

// FileCount 전체 파일 노드 수
func (p Product) FileCount() int {
	n := 0
	for _, files := range p.FilesByStage {
		n += len(files)
	}
	return n
}
