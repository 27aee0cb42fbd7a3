package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 요청이 규칙에 의해 거부됨 (상태 변경 없음)
	ErrValidation = errors.New("validation rejected")
	// ErrNotFound 파일/리비전/부모 조회 실패
	ErrNotFound = errors.New("not found")
)

var (
	ErrStageHasFiles   = fmt.Errorf("%w: stage has files", ErrValidation)
	ErrNoSuchStage     = fmt.Errorf("%w: no such stage", ErrValidation)
	ErrInvalidParent   = fmt.Errorf("%w: child files cannot have children", ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: invalid quantity", ErrValidation)
	ErrInvalidField    = fmt.Errorf("%w: unknown metadata field", ErrValidation)
	ErrInvalidMarker   = fmt.Errorf("%w: unknown marker type", ErrValidation)
	ErrEmptyName       = fmt.Errorf("%w: file name is required", ErrValidation)
	ErrNameCollision   = fmt.Errorf("%w: name already used in stage", ErrValidation)

	ErrFileNotFound     = fmt.Errorf("%w: file", ErrNotFound)
	ErrRevisionNotFound = fmt.Errorf("%w: revision", ErrNotFound)
)
