package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNode() FileNode {
	qty := 3
	return FileNode{
		ID:                    "file-1",
		CurrentRevisionNumber: 2,
		Revisions: []Revision{
			{ID: "rev-1", RevisionNumber: 1, Name: "part.stl", Status: StatusReleased, BlobRef: "data:model/stl;base64,AA=="},
			{ID: "rev-2", RevisionNumber: 2, Name: "part.stl", Status: StatusInWork, Price: "7", Quantity: &qty,
				BlobRef: "/media/part.stl", ChildFileIDs: []string{"file-2"}},
		},
	}
}

func TestFileNodeAccessorsFollowCurrentRevision(t *testing.T) {
	f := sampleNode()
	assert.Equal(t, StatusInWork, f.Status())
	assert.Equal(t, "7", f.Price())
	assert.Equal(t, []string{"file-2"}, f.ChildFileIDs())
	assert.Equal(t, f.Current(), f.SelectedRevision())

	f.CurrentRevisionNumber = 1
	assert.Equal(t, StatusReleased, f.Status())
	assert.Nil(t, f.Quantity())
	assert.NoError(t, f.Validate())
}

func TestFileNodeValidate(t *testing.T) {
	f := sampleNode()
	f.CurrentRevisionNumber = 3
	assert.Error(t, f.Validate())

	f = sampleNode()
	f.Revisions[1].RevisionNumber = 4
	assert.Error(t, f.Validate())

	f = sampleNode()
	f.IsChildFile = true
	assert.Error(t, f.Validate())
}

func TestFileNodeCloneIsIndependent(t *testing.T) {
	f := sampleNode()
	c := f.Clone()
	*c.Revisions[1].Quantity = 10
	c.Revisions[1].ChildFileIDs[0] = "other"
	c.Revisions[0].Name = "renamed"

	assert.Equal(t, 3, *f.Quantity())
	assert.Equal(t, []string{"file-2"}, f.ChildFileIDs())
	assert.Equal(t, "part.stl", f.Revisions[0].Name)
}

func TestFileNodeDecodeIgnoresDerivedFields(t *testing.T) {
	raw, err := json.Marshal(sampleNode())
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	wire["status"] = "Released"
	wire["selectedRevision"] = map[string]any{"name": "bogus"}
	tampered, err := json.Marshal(wire)
	require.NoError(t, err)

	var back FileNode
	require.NoError(t, json.Unmarshal(tampered, &back))
	assert.Equal(t, sampleNode(), back)
}

func TestFileNodeDecodeWithoutRevisions(t *testing.T) {
	var f FileNode
	err := json.Unmarshal([]byte(`{"id":"legacy","name":"old.pdf","mimeType":"application/pdf","byteSize":12,"price":"5"}`), &f)
	require.NoError(t, err)

	require.Len(t, f.Revisions, 1)
	assert.Equal(t, 1, f.CurrentRevisionNumber)
	assert.Equal(t, "old.pdf", f.Name())
	assert.Equal(t, StatusInWork, f.Status())
	assert.Equal(t, "5", f.Price())
	assert.NoError(t, f.Validate())
}

func TestChildNodeOmitsParentOnlyFields(t *testing.T) {
	qty := 1
	child := FileNode{
		ID: "c", IsChildFile: true, ParentID: "p", ParentRevisionAtAttachment: 2, CurrentRevisionNumber: 1,
		Revisions: []Revision{{RevisionNumber: 1, Name: "bolt.stl", Status: StatusInWork, Quantity: &qty}},
	}
	raw, err := json.Marshal(child)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.NotContains(t, wire, "quantity")
	assert.NotContains(t, wire, "childFileIds")
	assert.Equal(t, "p", wire["parentId"])
	assert.EqualValues(t, 2, wire["parentRevisionAtAttachment"])
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]FileStatus{
		"In-Work":  StatusInWork,
		"in_work":  StatusInWork,
		"REVIEW":   StatusReview,
		"released": StatusReleased,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseStatus("obsolete")
	assert.Error(t, err)
}

func TestProductValidate(t *testing.T) {
	label := "S1"
	p := NewProduct("demo")
	p.StageIcons = append(p.StageIcons, StageMarker{Type: MarkerStage, Label: label, SequenceNumber: 1})
	p.FilesByStage[label] = []FileNode{sampleNode()}
	p.SelectedStage = &label
	require.NoError(t, p.Validate())

	orphan := p.Clone()
	orphan.FilesByStage["S2"] = nil
	assert.Error(t, orphan.Validate())

	missing := p.Clone()
	delete(missing.FilesByStage, label)
	assert.Error(t, missing.Validate())

	// Clone owns the map
	assert.Contains(t, p.FilesByStage, label)
	assert.NotContains(t, p.FilesByStage, "S2")
}

func TestProductFindFileAndCount(t *testing.T) {
	p := NewProduct("demo")
	p.StageIcons = []StageMarker{{Type: MarkerStage, Label: "S1"}, {Type: MarkerIteration, Label: "i1"}}
	p.FilesByStage["S1"] = []FileNode{}
	p.FilesByStage["i1"] = []FileNode{{ID: "x"}, sampleNode()}

	label, idx, ok := p.FindFile("file-1")
	require.True(t, ok)
	assert.Equal(t, "i1", label)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, p.FileCount())
	assert.Equal(t, 1, p.CountMarkers(MarkerIteration))

	_, _, ok = p.FindFile("nope")
	assert.False(t, ok)

	m := p.Minimal()
	assert.Equal(t, "demo", m.Name)
	assert.Empty(t, m.StageIcons)
	assert.Empty(t, m.FilesByStage)
}

func TestStripInlineBlobs(t *testing.T) {
	p := NewProduct("demo")
	p.StageIcons = []StageMarker{{Type: MarkerStage, Label: "S1"}}
	p.FilesByStage["S1"] = []FileNode{sampleNode()}

	stripped := StripInlineBlobs([]Product{p})
	f := stripped[0].FilesByStage["S1"][0]
	assert.Empty(t, f.Revisions[0].BlobRef)
	assert.Equal(t, "/media/part.stl", f.Revisions[1].BlobRef)

	assert.True(t, IsInlineBlob(p.FilesByStage["S1"][0].Revisions[0].BlobRef))
}

func TestMarkerTypeHelpers(t *testing.T) {
	typ, err := ParseMarkerType("Iteration")
	require.NoError(t, err)
	assert.Equal(t, "i", typ.LabelPrefix())
	assert.Equal(t, "blue", MarkerStage.ColorTag())
	_, err = ParseMarkerType("phase")
	assert.Error(t, err)
}
