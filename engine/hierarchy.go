package engine

import (
	"fmt"

	"miniplm/models"
)

// AddMarker appends a Stage or Iteration marker, creates its empty file list and selects it.
//
// The sequence number is the live count of markers of that type plus one, so deleting the
// highest marker lets the next add reuse its number. If the derived label is still taken
// (a lower marker was deleted) the number advances to the next free label.
func AddMarker(p models.Product, t models.MarkerType) (models.Product, models.StageMarker, error) {
	if !t.Valid() {
		return models.Product{}, models.StageMarker{}, fmt.Errorf("%w: %q", ErrInvalidMarker, t)
	}

	seq := p.CountMarkers(t) + 1
	label := fmt.Sprintf("%s%d", t.LabelPrefix(), seq)
	for p.HasStage(label) {
		seq++
		label = fmt.Sprintf("%s%d", t.LabelPrefix(), seq)
	}

	marker := models.StageMarker{
		Type:           t,
		Label:          label,
		SequenceNumber: seq,
		ColorTag:       t.ColorTag(),
	}

	out := p.Clone()
	if out.FilesByStage == nil {
		out.FilesByStage = map[string][]models.FileNode{}
	}
	out.StageIcons = append(out.StageIcons, marker)
	out.FilesByStage[label] = []models.FileNode{}
	out.SelectedStage = &label
	return out, marker, nil
}

// RemoveMarker deletes an empty stage. A non-empty stage is rejected and p is returned untouched.
func RemoveMarker(p models.Product, label string) (models.Product, error) {
	if !p.HasStage(label) {
		return p, fmt.Errorf("%w: %s", ErrNoSuchStage, label)
	}
	if n := len(p.FilesByStage[label]); n > 0 {
		return p, fmt.Errorf("%w: %s holds %d file(s)", ErrStageHasFiles, label, n)
	}

	out := p.Clone()
	markers := out.StageIcons[:0]
	for _, m := range out.StageIcons {
		if m.Label != label {
			markers = append(markers, m)
		}
	}
	out.StageIcons = markers
	delete(out.FilesByStage, label)
	if out.SelectedLabel() == label {
		out.SelectedStage = nil
	}
	return out, nil
}

// SelectStage 선택된 스테이지 변경 (빈 라벨이면 선택 해제)
func SelectStage(p models.Product, label string) (models.Product, error) {
	out := p.Clone()
	if label == "" {
		out.SelectedStage = nil
		return out, nil
	}
	if !p.HasStage(label) {
		return p, fmt.Errorf("%w: %s", ErrNoSuchStage, label)
	}
	out.SelectedStage = &label
	return out, nil
}

// UploadFile adds content to a stage. A non-child file of the same name in that stage gets
// a new revision (price and quantity carried over) instead of a second entry.
// created reports whether a new file entry was added.
func UploadFile(p models.Product, label string, c Content) (out models.Product, file models.FileNode, created bool, err error) {
	if !p.HasStage(label) {
		return p, models.FileNode{}, false, fmt.Errorf("%w: %s", ErrNoSuchStage, label)
	}
	if c.Name == "" {
		return p, models.FileNode{}, false, ErrEmptyName
	}

	files := p.FilesByStage[label]
	for i, f := range files {
		if f.IsChildFile || f.Name() != c.Name {
			continue
		}
		revised, err := CreateRevision(f, c, FieldPrice, FieldQuantity)
		if err != nil {
			return p, models.FileNode{}, false, err
		}
		out = p.Clone()
		next := append([]models.FileNode(nil), files...)
		next[i] = revised
		out.FilesByStage[label] = next
		return out, revised, false, nil
	}

	file, err = NewFile(c)
	if err != nil {
		return p, models.FileNode{}, false, err
	}
	out = p.Clone()
	out.FilesByStage[label] = append(append([]models.FileNode(nil), files...), file)
	return out, file, true, nil
}

// AttachChild creates a child of parent scoped to the parent's current revision.
func AttachChild(parent models.FileNode, c Content) (models.FileNode, models.FileNode, error) {
	if parent.IsChildFile {
		return models.FileNode{}, models.FileNode{}, fmt.Errorf("%w: %s", ErrInvalidParent, parent.ID)
	}
	idx := revisionIndex(parent, parent.CurrentRevisionNumber)
	if idx < 0 {
		return models.FileNode{}, models.FileNode{}, fmt.Errorf("%w: %s has no current revision", ErrRevisionNotFound, parent.ID)
	}

	c.Quantity = nil
	child, err := NewFile(c)
	if err != nil {
		return models.FileNode{}, models.FileNode{}, err
	}
	child.IsChildFile = true
	child.ParentID = parent.ID
	child.ParentRevisionAtAttachment = parent.CurrentRevisionNumber

	out := parent.Clone()
	out.Revisions[idx].ChildFileIDs = append(out.Revisions[idx].ChildFileIDs, child.ID)
	return out, child, nil
}

// AttachChildFile attaches a child to the parent parentID found in label (any stage when empty).
// The child is placed after the parent's existing children.
func AttachChildFile(p models.Product, label, parentID string, c Content) (models.Product, models.FileNode, error) {
	if label == "" {
		found, _, ok := p.FindFile(parentID)
		if !ok {
			return p, models.FileNode{}, fmt.Errorf("%w: %s", ErrFileNotFound, parentID)
		}
		label = found
	}
	if !p.HasStage(label) {
		return p, models.FileNode{}, fmt.Errorf("%w: %s", ErrNoSuchStage, label)
	}
	files := p.FilesByStage[label]
	idx := indexOf(files, parentID)
	if idx < 0 {
		return p, models.FileNode{}, fmt.Errorf("%w: %s in %s", ErrFileNotFound, parentID, label)
	}

	parent, child, err := AttachChild(files[idx], c)
	if err != nil {
		return p, models.FileNode{}, err
	}

	insertAt := idx + 1
	for insertAt < len(files) && files[insertAt].IsChildFile && files[insertAt].ParentID == parentID {
		insertAt++
	}

	next := make([]models.FileNode, 0, len(files)+1)
	next = append(next, files[:insertAt]...)
	next = append(next, child)
	next = append(next, files[insertAt:]...)
	next[idx] = parent

	out := p.Clone()
	out.FilesByStage[label] = next
	return out, child, nil
}

// MoveFile moves a file between stages. A parent takes every child attached to it under any
// revision; a child moved alone is detached from its parent and becomes a standalone file.
// The move is rejected when a standalone file of the same name already lives in the target.
func MoveFile(p models.Product, id, from, to string) (models.Product, error) {
	if !p.HasStage(from) {
		return p, fmt.Errorf("%w: %s", ErrNoSuchStage, from)
	}
	if !p.HasStage(to) {
		return p, fmt.Errorf("%w: %s", ErrNoSuchStage, to)
	}
	src := p.FilesByStage[from]
	idx := indexOf(src, id)
	if idx < 0 {
		return p, fmt.Errorf("%w: %s in %s", ErrFileNotFound, id, from)
	}
	if from == to {
		return p.Clone(), nil
	}

	moving := src[idx]
	for _, f := range p.FilesByStage[to] {
		if !f.IsChildFile && f.Name() == moving.Name() {
			return p, fmt.Errorf("%w: %s already in %s", ErrNameCollision, moving.Name(), to)
		}
	}

	out := p.Clone()

	if moving.IsChildFile {
		parentID := moving.ParentID
		detached := moving.Clone()
		detached.IsChildFile = false
		detached.ParentID = ""
		detached.ParentRevisionAtAttachment = 0

		rest := make([]models.FileNode, 0, len(src)-1)
		for i, f := range src {
			if i != idx {
				rest = append(rest, f)
			}
		}
		out.FilesByStage[from] = rest
		out.FilesByStage[to] = append(append([]models.FileNode(nil), out.FilesByStage[to]...), detached)
		stripChildRef(out, parentID, id)
		return out, nil
	}

	keep := make([]models.FileNode, 0, len(src))
	moved := []models.FileNode{moving}
	for i, f := range src {
		switch {
		case i == idx:
		case f.IsChildFile && f.ParentID == id:
			moved = append(moved, f)
		default:
			keep = append(keep, f)
		}
	}
	out.FilesByStage[from] = keep
	out.FilesByStage[to] = append(append([]models.FileNode(nil), out.FilesByStage[to]...), moved...)
	return out, nil
}

// RemoveFile deletes a file anywhere in the product. Removing a parent also removes every
// child attached to it under any revision. It returns the number of nodes removed.
func RemoveFile(p models.Product, id string) (models.Product, int, error) {
	label, idx, ok := p.FindFile(id)
	if !ok {
		return p, 0, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	target := p.FilesByStage[label][idx]
	out := p.Clone()

	if target.IsChildFile {
		src := out.FilesByStage[label]
		rest := make([]models.FileNode, 0, len(src)-1)
		for i, f := range src {
			if i != idx {
				rest = append(rest, f)
			}
		}
		out.FilesByStage[label] = rest
		stripChildRef(out, target.ParentID, id)
		return out, 1, nil
	}

	removed := 0
	for stage, files := range out.FilesByStage {
		rest := make([]models.FileNode, 0, len(files))
		changed := false
		for _, f := range files {
			if f.ID == id || (f.IsChildFile && f.ParentID == id) {
				removed++
				changed = true
				continue
			}
			rest = append(rest, f)
		}
		if changed {
			out.FilesByStage[stage] = rest
		}
	}
	return out, removed, nil
}

// stripChildRef removes childID from every revision of parentID. out must already own its
// stage map; the stage slice holding the parent is replaced.
func stripChildRef(out models.Product, parentID, childID string) {
	label, idx, ok := out.FindFile(parentID)
	if !ok {
		return
	}
	parent := out.FilesByStage[label][idx].Clone()
	for ri := range parent.Revisions {
		ids := parent.Revisions[ri].ChildFileIDs
		kept := ids[:0]
		for _, cid := range ids {
			if cid != childID {
				kept = append(kept, cid)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		parent.Revisions[ri].ChildFileIDs = kept
	}
	next := append([]models.FileNode(nil), out.FilesByStage[label]...)
	next[idx] = parent
	out.FilesByStage[label] = next
}
