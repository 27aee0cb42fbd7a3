package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniplm/models"
)

func stageProduct(t *testing.T, labels ...models.MarkerType) models.Product {
	t.Helper()
	p := models.NewProduct("demo")
	for _, typ := range labels {
		var err error
		p, _, err = AddMarker(p, typ)
		require.NoError(t, err)
	}
	return p
}

func ids(files []models.FileNode) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}

func TestAddMarkerLabelsAndSelection(t *testing.T) {
	p := stageProduct(t, models.MarkerStage, models.MarkerIteration, models.MarkerStage)

	require.Len(t, p.StageIcons, 3)
	assert.Equal(t, "S1", p.StageIcons[0].Label)
	assert.Equal(t, "i1", p.StageIcons[1].Label)
	assert.Equal(t, "orange", p.StageIcons[1].ColorTag)
	assert.Equal(t, "S2", p.StageIcons[2].Label)
	assert.Equal(t, 2, p.StageIcons[2].SequenceNumber)
	assert.Equal(t, "S2", p.SelectedLabel())
	assert.NoError(t, p.Validate())

	_, _, err := AddMarker(p, models.MarkerType("Phase"))
	assert.ErrorIs(t, err, ErrInvalidMarker)
}

func TestMarkerNumberReuse(t *testing.T) {
	// deleting the highest marker frees its number for the next add
	p := stageProduct(t, models.MarkerStage, models.MarkerStage)
	p, err := RemoveMarker(p, "S2")
	require.NoError(t, err)
	p, m, err := AddMarker(p, models.MarkerStage)
	require.NoError(t, err)
	assert.Equal(t, "S2", m.Label)

	// deleting a lower one: count+1 collides with a live label, so the next free number is used
	p = stageProduct(t, models.MarkerStage, models.MarkerStage)
	p, err = RemoveMarker(p, "S1")
	require.NoError(t, err)
	p, m, err = AddMarker(p, models.MarkerStage)
	require.NoError(t, err)
	assert.Equal(t, "S3", m.Label)
	assert.Equal(t, 3, m.SequenceNumber)
	assert.NoError(t, p.Validate())
}

func TestRemoveMarkerWithFilesIsRejectedUnchanged(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, _, _, err := UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)

	before, err := json.Marshal(p)
	require.NoError(t, err)

	got, err := RemoveMarker(p, "S1")
	assert.ErrorIs(t, err, ErrStageHasFiles)
	assert.ErrorIs(t, err, ErrValidation)

	after, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	original, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(original))
}

func TestRemoveMarkerClearsSelection(t *testing.T) {
	p := stageProduct(t, models.MarkerStage, models.MarkerStage)
	require.Equal(t, "S2", p.SelectedLabel())

	p, err := RemoveMarker(p, "S2")
	require.NoError(t, err)
	assert.Nil(t, p.SelectedStage)
	assert.NotContains(t, p.FilesByStage, "S2")
	assert.NoError(t, p.Validate())

	_, err = RemoveMarker(p, "S7")
	assert.ErrorIs(t, err, ErrNoSuchStage)
}

func TestUploadDedupByName(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, first, created, err := UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)
	assert.True(t, created)

	p, err = UpdateFileMetadata(p, "S1", first.ID, FieldPrice, "20")
	require.NoError(t, err)

	p, second, created, err := UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	require.Len(t, p.FilesByStage["S1"], 1)
	f := p.FilesByStage["S1"][0]
	assert.Equal(t, 2, f.RevisionCount())
	assert.Equal(t, 2, f.CurrentRevisionNumber)
	assert.Equal(t, "20", f.Price())

	_, _, _, err = UploadFile(p, "S4", content("part.stl"))
	assert.ErrorIs(t, err, ErrNoSuchStage)
}

func TestUploadDoesNotMergeIntoChild(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, parent, _, err := UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, _, err = AttachChildFile(p, "S1", parent.ID, content("bolt.stl"))
	require.NoError(t, err)

	p, _, created, err := UploadFile(p, "S1", content("bolt.stl"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, p.FilesByStage["S1"], 3)
}

func TestAttachChildRejectsGrandchildren(t *testing.T) {
	parent, err := NewFile(content("asm.stl"))
	require.NoError(t, err)
	parent, child, err := AttachChild(parent, content("bolt.stl"))
	require.NoError(t, err)

	assert.True(t, child.IsChildFile)
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, 1, child.ParentRevisionAtAttachment)
	assert.Equal(t, []string{child.ID}, parent.ChildFileIDs())

	_, _, err = AttachChild(child, content("nut.stl"))
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestRevisionScopedChildVisibility(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, parent, _, err := UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, child, err := AttachChildFile(p, "S1", parent.ID, content("bolt.stl"))
	require.NoError(t, err)

	p, _, _, err = UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	files := p.FilesByStage["S1"]
	assert.Empty(t, VisibleChildren(files, files[0]))

	p, err = SelectFileRevision(p, "S1", parent.ID, 1)
	require.NoError(t, err)
	files = p.FilesByStage["S1"]
	visible := VisibleChildren(files, files[0])
	require.Len(t, visible, 1)
	assert.Equal(t, child, visible[0])
}

func TestRemoveParentCascades(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, parent, _, err := UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, _, _, err = UploadFile(p, "S1", content("other.stl"))
	require.NoError(t, err)
	for _, name := range []string{"a.stl", "b.stl"} {
		p, _, err = AttachChildFile(p, "S1", parent.ID, content(name))
		require.NoError(t, err)
	}
	p, _, _, err = UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, _, err = AttachChildFile(p, "S1", parent.ID, content("c.stl"))
	require.NoError(t, err)
	require.Len(t, p.FilesByStage["S1"], 5)

	next, removed, err := RemoveFile(p, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
	require.Len(t, next.FilesByStage["S1"], 1)
	assert.Equal(t, "other.stl", next.FilesByStage["S1"][0].Name())
	assert.Len(t, p.FilesByStage["S1"], 5)

	_, _, err = RemoveFile(next, parent.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestRemoveChildStripsParentReference(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, parent, _, err := UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, child, err := AttachChildFile(p, "S1", parent.ID, content("bolt.stl"))
	require.NoError(t, err)

	p, removed, err := RemoveFile(p, child.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.Len(t, p.FilesByStage["S1"], 1)
	assert.Empty(t, p.FilesByStage["S1"][0].ChildFileIDs())
}

func TestMoveParentTakesAllChildren(t *testing.T) {
	p := stageProduct(t, models.MarkerStage, models.MarkerStage)
	p, parent, _, err := UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, _, _, err = UploadFile(p, "S1", content("keep.stl"))
	require.NoError(t, err)
	p, old, err := AttachChildFile(p, "S1", parent.ID, content("old.stl"))
	require.NoError(t, err)
	p, _, _, err = UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, cur, err := AttachChildFile(p, "S1", parent.ID, content("new.stl"))
	require.NoError(t, err)

	moved, err := MoveFile(p, parent.ID, "S1", "S2")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{parent.ID, old.ID, cur.ID}, ids(moved.FilesByStage["S2"]))
	require.Len(t, moved.FilesByStage["S1"], 1)
	assert.Equal(t, "keep.stl", moved.FilesByStage["S1"][0].Name())
	for _, f := range moved.FilesByStage["S1"] {
		assert.False(t, f.IsChildFile)
	}
}

func TestMoveChildAloneDetaches(t *testing.T) {
	p := stageProduct(t, models.MarkerStage, models.MarkerStage)
	p, parent, _, err := UploadFile(p, "S1", content("asm.stl"))
	require.NoError(t, err)
	p, child, err := AttachChildFile(p, "S1", parent.ID, content("bolt.stl"))
	require.NoError(t, err)

	moved, err := MoveFile(p, child.ID, "S1", "S2")
	require.NoError(t, err)

	require.Len(t, moved.FilesByStage["S1"], 1)
	assert.Empty(t, moved.FilesByStage["S1"][0].ChildFileIDs())
	require.Len(t, moved.FilesByStage["S2"], 1)
	detached := moved.FilesByStage["S2"][0]
	assert.Equal(t, child.ID, detached.ID)
	assert.False(t, detached.IsChildFile)
	assert.Empty(t, detached.ParentID)
}

func TestMoveFileErrors(t *testing.T) {
	p := stageProduct(t, models.MarkerStage)
	p, f, _, err := UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)

	_, err = MoveFile(p, f.ID, "S1", "S9")
	assert.ErrorIs(t, err, ErrNoSuchStage)
	_, err = MoveFile(p, "nope", "S1", "S1")
	assert.ErrorIs(t, err, ErrFileNotFound)

	same, err := MoveFile(p, f.ID, "S1", "S1")
	require.NoError(t, err)
	assert.Len(t, same.FilesByStage["S1"], 1)

	// 대상 스테이지에 같은 이름의 독립 파일이 있으면 거부
	p, _, err = AddMarker(p, models.MarkerIteration)
	require.NoError(t, err)
	p, twin, _, err := UploadFile(p, "i1", content("part.stl"))
	require.NoError(t, err)
	p, bolt, err := AttachChildFile(p, "S1", f.ID, content("bolt.stl"))
	require.NoError(t, err)

	got, err := MoveFile(p, f.ID, "S1", "i1")
	assert.ErrorIs(t, err, ErrNameCollision)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, p, got)
	assert.Len(t, p.FilesByStage["S1"], 2)
	assert.Len(t, p.FilesByStage["i1"], 1)

	_, err = MoveFile(p, twin.ID, "i1", "S1")
	assert.ErrorIs(t, err, ErrNameCollision)

	// 이름이 겹치지 않는 자식은 분리되어 이동
	moved, err := MoveFile(p, bolt.ID, "S1", "i1")
	require.NoError(t, err)
	assert.Len(t, moved.FilesByStage["i1"], 2)
}

func TestPartStlScenario(t *testing.T) {
	p := models.NewProduct("demo")
	p, stage, err := AddMarker(p, models.MarkerStage)
	require.NoError(t, err)
	require.Equal(t, "S1", stage.Label)

	p, part, created, err := UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, 1, part.CurrentRevisionNumber)
	assert.Equal(t, models.StatusInWork, part.Status())

	p, err = UpdateFileMetadata(p, "S1", part.ID, FieldStatus, "Released")
	require.NoError(t, err)

	p, part, created, err = UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)
	require.False(t, created)
	assert.Equal(t, 2, part.RevisionCount())
	assert.Equal(t, 2, part.CurrentRevisionNumber)
	assert.Equal(t, models.StatusInWork, part.Status())

	p, bolt, err := AttachChildFile(p, "S1", part.ID, content("bolt.stl"))
	require.NoError(t, err)
	assert.Equal(t, 2, bolt.ParentRevisionAtAttachment)

	p, err = SelectFileRevision(p, "S1", part.ID, 1)
	require.NoError(t, err)
	files := p.FilesByStage["S1"]
	assert.Empty(t, VisibleChildren(files, files[0]))

	p, err = SelectFileRevision(p, "S1", part.ID, 2)
	require.NoError(t, err)
	files = p.FilesByStage["S1"]
	visible := VisibleChildren(files, files[0])
	require.Len(t, visible, 1)
	assert.Equal(t, "bolt.stl", visible[0].Name())
	assert.NoError(t, p.Validate())
}
