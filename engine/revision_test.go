package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniplm/models"
)

func content(name string) Content {
	return Content{
		Name:     name,
		ByteSize: int64(len(name)),
		MimeType: "model/stl",
		BlobRef:  "data:model/stl;base64,c29saWQ=",
	}
}

func intPtr(n int) *int { return &n }

func TestNewFileStartsAtRevisionOne(t *testing.T) {
	f, err := NewFile(content("part.stl"))
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, 1, f.CurrentRevisionNumber)
	require.Len(t, f.Revisions, 1)
	assert.Equal(t, models.StatusInWork, f.Status())
	assert.Equal(t, "part.stl", f.Name())
	assert.NoError(t, f.Validate())

	_, err = NewFile(Content{})
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRevisionNumbersStayContiguous(t *testing.T) {
	f, err := NewFile(content("part.stl"))
	require.NoError(t, err)

	steps := []int{0, 0, 1, 0, 3, 2, 0}
	for _, step := range steps {
		if step == 0 {
			f, err = CreateRevision(f, content("part.stl"))
		} else {
			f, err = SelectRevision(f, step)
		}
		require.NoError(t, err)
		require.NoError(t, f.Validate())
		_, ok := f.Revision(f.CurrentRevisionNumber)
		require.True(t, ok)
	}

	assert.Equal(t, 5, f.RevisionCount())
	assert.Equal(t, 5, f.CurrentRevisionNumber)
	for i, r := range f.Revisions {
		assert.Equal(t, i+1, r.RevisionNumber)
	}
}

func TestCreateRevisionInheritance(t *testing.T) {
	f, err := NewFile(content("part.stl"))
	require.NoError(t, err)
	f, err = UpdateMetadata(f, FieldPrice, " 12.50 ")
	require.NoError(t, err)
	f, err = UpdateMetadata(f, FieldQuantity, "4")
	require.NoError(t, err)
	f, err = UpdateMetadata(f, FieldStatus, "Released")
	require.NoError(t, err)

	withPrice, err := CreateRevision(f, content("part.stl"), FieldPrice)
	require.NoError(t, err)
	assert.Equal(t, "12.50", withPrice.Price())
	assert.Nil(t, withPrice.Quantity())
	assert.Equal(t, models.StatusInWork, withPrice.Status())

	withBoth, err := CreateRevision(f, content("part.stl"), FieldPrice, FieldQuantity)
	require.NoError(t, err)
	require.NotNil(t, withBoth.Quantity())
	assert.Equal(t, 4, *withBoth.Quantity())

	none, err := CreateRevision(f, content("part.stl"))
	require.NoError(t, err)
	assert.Empty(t, none.Price())

	// the input is never modified
	assert.Equal(t, 1, f.RevisionCount())
	assert.Equal(t, models.StatusReleased, f.Status())
}

func TestCreateRevisionResetsChildren(t *testing.T) {
	parent, err := NewFile(content("asm.stl"))
	require.NoError(t, err)
	parent, _, err = AttachChild(parent, content("bolt.stl"))
	require.NoError(t, err)
	require.Len(t, parent.ChildFileIDs(), 1)

	next, err := CreateRevision(parent, content("asm.stl"))
	require.NoError(t, err)
	assert.Empty(t, next.ChildFileIDs())

	back, err := SelectRevision(next, 1)
	require.NoError(t, err)
	assert.Len(t, back.ChildFileIDs(), 1)
}

func TestSelectRevisionMissing(t *testing.T) {
	f, err := NewFile(content("part.stl"))
	require.NoError(t, err)

	_, err = SelectRevision(f, 2)
	assert.ErrorIs(t, err, ErrRevisionNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = SetChangeDescription(f, 0, "x")
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestSetChangeDescriptionOnOlderRevision(t *testing.T) {
	f, err := NewFile(content("part.stl"))
	require.NoError(t, err)
	f, err = CreateRevision(f, content("part.stl"))
	require.NoError(t, err)

	f, err = SetChangeDescription(f, 1, "initial import")
	require.NoError(t, err)
	assert.Equal(t, "initial import", f.Revisions[0].ChangeDescription)
	assert.Empty(t, f.ChangeDescription())
}

func TestUpdateMetadataRejections(t *testing.T) {
	parent, err := NewFile(content("asm.stl"))
	require.NoError(t, err)
	_, child, err := AttachChild(parent, content("bolt.stl"))
	require.NoError(t, err)

	_, err = UpdateMetadata(parent, FieldStatus, "Shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = UpdateMetadata(child, FieldQuantity, "2")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = UpdateMetadata(parent, FieldQuantity, "-1")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = UpdateMetadata(parent, Field("colour"), "red")
	assert.ErrorIs(t, err, ErrInvalidField)

	cleared, err := UpdateMetadata(parent, FieldQuantity, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.Quantity())

	review, err := UpdateMetadata(child, FieldStatus, "review")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, review.Status())
}

func TestUpdateMetadataViewsAgree(t *testing.T) {
	f, err := NewFile(content("part.stl"))
	require.NoError(t, err)
	f, err = CreateRevision(f, content("part.stl"))
	require.NoError(t, err)
	f, err = UpdateMetadata(f, FieldStatus, "Review")
	require.NoError(t, err)
	f, err = UpdateMetadata(f, FieldPrice, "9.99")
	require.NoError(t, err)
	f, err = UpdateMetadata(f, FieldChangeDescription, "thicker wall")
	require.NoError(t, err)

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	selected := wire["selectedRevision"].(map[string]any)
	current := wire["revisions"].([]any)[1].(map[string]any)

	for _, key := range []string{"status", "price", "changeDescription", "name"} {
		assert.Equal(t, wire[key], selected[key], key)
		assert.Equal(t, wire[key], current[key], key)
	}
	assert.Equal(t, "Review", wire["status"])
	assert.Equal(t, "In-Work", wire["revisions"].([]any)[0].(map[string]any)["status"])
}

func TestProductLevelFileNotFound(t *testing.T) {
	p := models.NewProduct("demo")
	p, _, err := AddMarker(p, models.MarkerStage)
	require.NoError(t, err)

	_, err = UpdateFileMetadata(p, "S1", "missing", FieldPrice, "1")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = SelectFileRevision(p, "", "missing", 1)
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = DescribeRevision(p, "S9", "missing", 1, "x")
	assert.ErrorIs(t, err, ErrNoSuchStage)
}

func TestProductLevelUpdateLeavesSiblingsShared(t *testing.T) {
	p := models.NewProduct("demo")
	p, _, err := AddMarker(p, models.MarkerStage)
	require.NoError(t, err)
	p, _, _, err = UploadFile(p, "S1", content("a.stl"))
	require.NoError(t, err)
	p, _, err = AddMarker(p, models.MarkerStage)
	require.NoError(t, err)
	p, b, _, err := UploadFile(p, "S2", content("b.stl"))
	require.NoError(t, err)

	next, err := UpdateFileMetadata(p, "S2", b.ID, FieldPrice, "3")
	require.NoError(t, err)

	assert.Equal(t, "3", next.FilesByStage["S2"][0].Price())
	assert.Empty(t, p.FilesByStage["S2"][0].Price())
	assert.Same(t, &p.FilesByStage["S1"][0], &next.FilesByStage["S1"][0])
}

func TestVisibleChildrenOfChildIsEmpty(t *testing.T) {
	parent, err := NewFile(content("asm.stl"))
	require.NoError(t, err)
	parent, child, err := AttachChild(parent, content("bolt.stl"))
	require.NoError(t, err)

	files := []models.FileNode{parent, child}
	assert.Len(t, VisibleChildren(files, parent), 1)
	assert.Empty(t, VisibleChildren(files, child))
}

func TestParseField(t *testing.T) {
	f, err := ParseField("qty")
	require.NoError(t, err)
	assert.Equal(t, FieldQuantity, f)

	_, err = ParseField("weight")
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestLinkRevision(t *testing.T) {
	p := models.NewProduct("demo")
	p, _, err := AddMarker(p, models.MarkerStage)
	require.NoError(t, err)
	p, f, _, err := UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)
	p, _, _, err = UploadFile(p, "S1", content("part.stl"))
	require.NoError(t, err)

	next, err := LinkRevision(p, f.ID, 1, "/media/part.stl", "file-1")
	require.NoError(t, err)
	got := next.FilesByStage["S1"][0]
	assert.Equal(t, "/media/part.stl", got.Revisions[0].BlobRef)
	assert.Equal(t, "file-1", got.Revisions[0].RemoteID)
	// 현재 리비전(2)은 그대로
	assert.Equal(t, "data:model/stl;base64,c29saWQ=", got.BlobRef())
	assert.Empty(t, p.FilesByStage["S1"][0].Revisions[0].RemoteID)

	_, err = LinkRevision(p, f.ID, 9, "", "x")
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}
