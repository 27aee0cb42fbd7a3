package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miniplm/database"
	"miniplm/models"
	"miniplm/services"
)

func TestOrphanCleanerKeepsReferencedFiles(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	defer db.Close()

	exec := services.NewSQLExecutor(db)
	products := services.NewProductService(exec)
	files := services.NewFileService(exec, t.TempDir())

	kept, err := files.Upload(ctx, models.FileUploadRequest{OriginalName: "part.stl", Content: strings.NewReader("a")}, "")
	require.NoError(t, err)
	orphan, err := files.Upload(ctx, models.FileUploadRequest{OriginalName: "scrap.stl", Content: strings.NewReader("b")}, "")
	require.NoError(t, err)

	p := models.NewProduct("Bracket")
	p.StageIcons = []models.StageMarker{{Type: models.MarkerStage, Label: "S1", SequenceNumber: 1, ColorTag: "blue"}}
	p.FilesByStage["S1"] = []models.FileNode{{
		ID:                    "f1",
		CurrentRevisionNumber: 1,
		Revisions:             []models.Revision{{ID: "f1", RevisionNumber: 1, Name: "part.stl", Status: models.StatusInWork}},
	}}
	_, err = products.SaveAll(ctx, []models.Product{p})
	require.NoError(t, err)

	// 음수 보존 기간: 방금 올린 파일도 대상
	cleaner := &OrphanCleaner{Products: products, Files: files, Retention: -time.Minute}
	n, err := cleaner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = files.Get(ctx, orphan.ID)
	assert.ErrorIs(t, err, services.ErrFileNotFound)
	_, err = files.Get(ctx, kept.ID)
	assert.NoError(t, err)

	cleaner.Retention = time.Hour
	n, err = cleaner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
