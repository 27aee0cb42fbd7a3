// Package workbench holds the client-side application state: the product list, the active
// product and file cursor, and the command methods that apply engine operations to it.
//
// Every mutating method runs under one mutex, including the save that follows it, so at
// most one structural mutation is in flight. Each returns a Notice for the user; Blocking
// notices are reserved for explicit rejections such as deleting a non-empty stage.
package workbench

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"miniplm/client"
	"miniplm/engine"
	"miniplm/hybridstorage"
	"miniplm/logger"
	"miniplm/models"
	"miniplm/utils"
)

var (
	// ErrNoProduct 선택된 제품 없음
	ErrNoProduct = fmt.Errorf("%w: product", engine.ErrNotFound)
	// ErrNoStageSelected 업로드 대상 스테이지 없음
	ErrNoStageSelected = fmt.Errorf("%w: no stage selected", engine.ErrValidation)
)

// Notice 사용자에게 보여줄 상태 메시지
type Notice struct {
	Text     string
	Blocking bool
}

func transient(format string, args ...interface{}) Notice {
	return Notice{Text: fmt.Sprintf(format, args...)}
}

// Uploader sends file content to the server. *client.Client implements it.
type Uploader interface {
	UploadFile(ctx context.Context, name string, content io.Reader) (models.FileUploadResult, error)
	UploadChildFile(ctx context.Context, name string, content io.Reader, parentID string, parentRevision int) (models.FileUploadResult, error)
	UploadRevision(ctx context.Context, name string, content io.Reader, rev client.RevisionUpload) (models.FileUploadResult, error)
	MediaURL(name string) string
	AssetURL(name, id string) string
	ResolveURL(ref string) string
}

// Workbench is the state container. The zero value is not usable; call New.
type Workbench struct {
	mu       sync.Mutex
	store    *hybridstorage.Storage
	uploader Uploader

	products        []models.Product
	selectedProduct int
	selectedFileID  string
	degraded        bool

	now func() time.Time
}

// New creates a workbench over store. uploader may be nil for offline use.
func New(store *hybridstorage.Storage, uploader Uploader) *Workbench {
	return &Workbench{
		store:    store,
		uploader: uploader,
		products: []models.Product{models.NewProduct(models.DefaultProductName)},
		now:      utils.Now,
	}
}

// Open loads the product list and the persisted product selection.
func (w *Workbench) Open(ctx context.Context) (Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := w.store.Load(ctx)
	w.products = res.Products
	if len(w.products) == 0 {
		w.products = []models.Product{models.NewProduct(models.DefaultProductName)}
	}
	w.selectedProduct = w.store.LoadSelectedProductIndex(ctx)
	if w.selectedProduct < 0 || w.selectedProduct >= len(w.products) {
		w.selectedProduct = 0
	}
	w.selectedFileID = ""
	w.degraded = res.RemoteErr != nil

	logger.WithFields(map[string]interface{}{
		"products": len(w.products),
		"source":   res.Source,
	}).Info("Workbench opened")

	switch res.Source {
	case hybridstorage.SourceRemote:
		return transient("Loaded %d product(s) from server", len(w.products)), nil
	case hybridstorage.SourceLocal:
		if res.RemoteErr != nil {
			return transient("Server unavailable, loaded local data"), nil
		}
		return transient("Loaded local data"), nil
	default:
		return transient("Started with a new product"), nil
	}
}

// Degraded reports whether the last remote exchange failed.
func (w *Workbench) Degraded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.degraded
}

// Products returns a deep copy of every product.
func (w *Workbench) Products() []models.Product {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Product, len(w.products))
	for i, p := range w.products {
		out[i] = p.DeepCopy()
	}
	return out
}

// Active returns a copy of the selected product and its index.
func (w *Workbench) Active() (models.Product, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.products[w.selectedProduct].DeepCopy(), w.selectedProduct
}

// AddProduct appends an empty product and selects it.
func (w *Workbench) AddProduct(ctx context.Context, name string) (Notice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return transient("Product name is required"),
			fmt.Errorf("%w: product name is required", engine.ErrValidation)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.products = append(w.products, models.NewProduct(name))
	w.selectedProduct = len(w.products) - 1
	w.selectedFileID = ""
	w.saveSelection(ctx)
	return w.persist(ctx, "Product %q added", name), nil
}

// SelectProduct switches the active product and persists the choice.
func (w *Workbench) SelectProduct(ctx context.Context, index int) (Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.products) {
		return transient("No product at %d", index), fmt.Errorf("%w: index %d", ErrNoProduct, index)
	}
	w.selectedProduct = index
	w.selectedFileID = ""
	w.saveSelection(ctx)
	return transient("Selected %s", w.products[index].Name), nil
}

func (w *Workbench) saveSelection(ctx context.Context) {
	if err := w.store.SaveSelectedProductIndex(ctx, w.selectedProduct); err != nil {
		logger.Warn("Failed to persist selected product: %v", err)
	}
}

// AddMarker adds a Stage or Iteration to the active product.
func (w *Workbench) AddMarker(ctx context.Context, t models.MarkerType) (models.StageMarker, Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, marker, err := engine.AddMarker(w.active(), t)
	if err != nil {
		return models.StageMarker{}, reject(err), err
	}
	w.setActive(p)
	return marker, w.persist(ctx, "%s %s added", t, marker.Label), nil
}

// RemoveMarker deletes an empty stage or iteration. A non-empty one is refused with a
// blocking notice and the tree is left as it was.
func (w *Workbench) RemoveMarker(ctx context.Context, label string) (Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := engine.RemoveMarker(w.active(), label)
	if err != nil {
		if errors.Is(err, engine.ErrStageHasFiles) {
			return Notice{Text: fmt.Sprintf("Cannot delete %s: remove its files first", label), Blocking: true}, err
		}
		return reject(err), err
	}
	w.setActive(p)
	return w.persist(ctx, "%s deleted", label), nil
}

// SelectStage changes the selected stage of the active product ("" clears it).
func (w *Workbench) SelectStage(ctx context.Context, label string) (Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := engine.SelectStage(w.active(), label)
	if err != nil {
		return reject(err), err
	}
	w.setActive(p)
	if label == "" {
		return w.persist(ctx, "Stage selection cleared"), nil
	}
	return w.persist(ctx, "Stage %s selected", label), nil
}

// Upload reads content and adds it to stage label (the selected stage when empty). A file
// of the same name already in that stage gets a new revision. The content is kept inline
// alongside the server's upload id so every revision keeps its own bytes.
func (w *Workbench) Upload(ctx context.Context, label, name string, content io.Reader) (models.FileNode, Notice, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return models.FileNode{}, transient("Failed to read %s", name), fmt.Errorf("read %s: %w", name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.active()
	if label == "" {
		label = p.SelectedLabel()
	}
	if label == "" {
		return models.FileNode{}, reject(ErrNoStageSelected), ErrNoStageSelected
	}

	c := w.content(name, data)
	p, file, created, err := engine.UploadFile(p, label, c)
	if err != nil {
		return models.FileNode{}, reject(err), err
	}

	if w.uploader != nil {
		var res models.FileUploadResult
		var upErr error
		if created {
			res, upErr = w.uploader.UploadFile(ctx, c.Name, bytes.NewReader(data))
		} else {
			res, upErr = w.uploader.UploadRevision(ctx, c.Name, bytes.NewReader(data), client.RevisionUpload{OriginalName: c.Name})
		}
		p = w.link(p, file, res, upErr)
	}

	w.setActive(p)
	w.selectedFileID = file.ID
	file, _ = w.findFile(file.ID)
	if created {
		return file, w.persist(ctx, "Uploaded %s", c.Name), nil
	}
	return file, w.persist(ctx, "Uploaded %s as revision %d", c.Name, file.CurrentRevisionNumber), nil
}

// AttachChild reads content and attaches it to parentID under the parent's current revision.
func (w *Workbench) AttachChild(ctx context.Context, parentID, name string, content io.Reader) (models.FileNode, Notice, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return models.FileNode{}, transient("Failed to read %s", name), fmt.Errorf("read %s: %w", name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.active()
	parent, ok := findIn(p, parentID)
	if !ok {
		err := fmt.Errorf("%w: %s", engine.ErrFileNotFound, parentID)
		return models.FileNode{}, reject(err), err
	}

	c := w.content(name, data)
	p, child, err := engine.AttachChildFile(p, "", parentID, c)
	if err != nil {
		return models.FileNode{}, reject(err), err
	}

	if w.uploader != nil {
		if remoteParent := parent.Current().RemoteID; remoteParent != "" {
			res, upErr := w.uploader.UploadChildFile(ctx, c.Name, bytes.NewReader(data), remoteParent, parent.CurrentRevisionNumber)
			p = w.link(p, child, res, upErr)
		} else {
			logger.Debug("Parent %s is not on the server, keeping %s inline", parentID, c.Name)
		}
	}

	w.setActive(p)
	child, _ = w.findFile(child.ID)
	return child, w.persist(ctx, "Attached %s to %s", c.Name, parent.Name()), nil
}

// ReviseFile adds content as a new revision of fileID wherever the file lives. Price and, for
// parents, quantity carry over; a child revision stays under the parent revision it was
// attached to.
func (w *Workbench) ReviseFile(ctx context.Context, fileID, name string, content io.Reader) (models.FileNode, Notice, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return models.FileNode{}, transient("Failed to read %s", name), fmt.Errorf("read %s: %w", name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.active()
	file, ok := findIn(p, fileID)
	if !ok {
		err := fmt.Errorf("%w: %s", engine.ErrFileNotFound, fileID)
		return models.FileNode{}, reject(err), err
	}

	inherit := []engine.Field{engine.FieldPrice}
	if !file.IsChildFile {
		inherit = append(inherit, engine.FieldQuantity)
	}
	c := w.content(name, data)
	p, err = engine.ReviseFile(p, "", fileID, c, inherit...)
	if err != nil {
		return models.FileNode{}, reject(err), err
	}
	revised, _ := findIn(p, fileID)

	if w.uploader != nil {
		rev := client.RevisionUpload{OriginalName: file.Name()}
		send := true
		if file.IsChildFile {
			parent, ok := findIn(p, file.ParentID)
			rev.IsChild = true
			rev.ParentID = parent.Current().RemoteID
			rev.ParentRevision = file.ParentRevisionAtAttachment
			send = ok && rev.ParentID != ""
		}
		if send {
			res, upErr := w.uploader.UploadRevision(ctx, c.Name, bytes.NewReader(data), rev)
			p = w.link(p, revised, res, upErr)
		} else {
			logger.Debug("Parent of %s is not on the server, keeping revision inline", fileID)
		}
	}

	w.setActive(p)
	revised, _ = w.findFile(fileID)
	return revised, w.persist(ctx, "Uploaded %s as revision %d", revised.Name(), revised.CurrentRevisionNumber), nil
}

// link records a successful upload on the file's current revision. The inline payload stays;
// only the server id is added.
func (w *Workbench) link(p models.Product, file models.FileNode, res models.FileUploadResult, upErr error) models.Product {
	if upErr != nil {
		w.degraded = true
		logger.WithFields(map[string]interface{}{
			"file":  file.Name(),
			"error": upErr.Error(),
		}).Warn("Upload to server failed, keeping content inline")
		return p
	}
	linked, err := engine.LinkRevision(p, file.ID, file.CurrentRevisionNumber, "", res.ID)
	if err != nil {
		logger.Warn("Failed to record server copy of %s: %v", file.Name(), err)
		return p
	}
	return linked
}

// content builds the engine payload, inlining data as a data URI.
func (w *Workbench) content(name string, data []byte) engine.Content {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	mimeType := detectMIME(name, data)
	return engine.Content{
		Name:       name,
		ByteSize:   int64(len(data)),
		MimeType:   mimeType,
		BlobRef:    models.InlineBlobPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		UploadedAt: w.now(),
	}
}

// detectMIME picks the type from the extension first, then sniffs the content.
func detectMIME(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return t
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}

// SelectRevision makes number the current revision of fileID.
func (w *Workbench) SelectRevision(ctx context.Context, fileID string, number int) (Notice, error) {
	return w.mutate(ctx, func(p models.Product) (models.Product, error) {
		return engine.SelectFileRevision(p, "", fileID, number)
	}, "Revision %d selected", number)
}

// UpdateMetadata writes one metadata field of the file's current revision.
func (w *Workbench) UpdateMetadata(ctx context.Context, fileID string, field engine.Field, value string) (Notice, error) {
	return w.mutate(ctx, func(p models.Product) (models.Product, error) {
		return engine.UpdateFileMetadata(p, "", fileID, field, value)
	}, "%s updated", field)
}

// SetChangeDescription sets the description of any revision of fileID.
func (w *Workbench) SetChangeDescription(ctx context.Context, fileID string, number int, text string) (Notice, error) {
	return w.mutate(ctx, func(p models.Product) (models.Product, error) {
		return engine.DescribeRevision(p, "", fileID, number, text)
	}, "Description of revision %d saved", number)
}

// MoveFile moves fileID from one stage to another; parents take their children along.
func (w *Workbench) MoveFile(ctx context.Context, fileID, from, to string) (Notice, error) {
	return w.mutate(ctx, func(p models.Product) (models.Product, error) {
		return engine.MoveFile(p, fileID, from, to)
	}, "Moved to %s", to)
}

// RemoveFile deletes fileID and, for a parent, all of its children.
func (w *Workbench) RemoveFile(ctx context.Context, fileID string) (int, Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, removed, err := engine.RemoveFile(w.active(), fileID)
	if err != nil {
		return 0, reject(err), err
	}
	w.setActive(p)
	if _, ok := w.findFile(w.selectedFileID); !ok {
		w.selectedFileID = ""
	}
	return removed, w.persist(ctx, "Removed %d file(s)", removed), nil
}

// mutate applies fn to the active product and saves the result.
func (w *Workbench) mutate(ctx context.Context, fn func(models.Product) (models.Product, error), format string, args ...interface{}) (Notice, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, err := fn(w.active())
	if err != nil {
		return reject(err), err
	}
	w.setActive(p)
	return w.persist(ctx, format, args...), nil
}

// VisibleChildren lists the children attached under the parent's current revision.
func (w *Workbench) VisibleChildren(fileID string) ([]models.FileNode, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.active()
	label, idx, ok := p.FindFile(fileID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrFileNotFound, fileID)
	}
	files := p.FilesByStage[label]
	children := engine.VisibleChildren(files, files[idx])
	for i := range children {
		children[i] = children[i].Clone()
	}
	return children, nil
}

// SelectFile moves the file cursor ("" clears it).
func (w *Workbench) SelectFile(fileID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if fileID != "" {
		if _, ok := w.findFile(fileID); !ok {
			return fmt.Errorf("%w: %s", engine.ErrFileNotFound, fileID)
		}
	}
	w.selectedFileID = fileID
	return nil
}

// SelectedFile returns the file under the cursor.
func (w *Workbench) SelectedFile() (models.FileNode, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selectedFileID == "" {
		return models.FileNode{}, false
	}
	f, ok := w.findFile(w.selectedFileID)
	if !ok {
		return models.FileNode{}, false
	}
	return f.Clone(), true
}

// BlobURL returns where the content of the file's current revision can be read: the inline
// payload, the stored reference, the server copy of that exact upload, or as a last resort
// the latest media URL for the file name.
func (w *Workbench) BlobURL(fileID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, ok := w.findFile(fileID)
	if !ok {
		return "", fmt.Errorf("%w: %s", engine.ErrFileNotFound, fileID)
	}
	ref := f.BlobRef()
	remoteID := f.Current().RemoteID
	switch {
	case models.IsInlineBlob(ref):
		return ref, nil
	case ref != "" && w.uploader != nil:
		return w.uploader.ResolveURL(ref), nil
	case ref != "":
		return ref, nil
	case remoteID != "" && w.uploader != nil:
		return w.uploader.AssetURL(f.Name(), remoteID), nil
	case w.uploader != nil:
		return w.uploader.MediaURL(f.Name()), nil
	}
	return "", fmt.Errorf("%w: no content for %s", engine.ErrNotFound, f.Name())
}

// Caller holds mu for the helpers below.

func (w *Workbench) active() models.Product {
	return w.products[w.selectedProduct]
}

func (w *Workbench) setActive(p models.Product) {
	w.products[w.selectedProduct] = p
}

func (w *Workbench) findFile(id string) (models.FileNode, bool) {
	return findIn(w.active(), id)
}

func findIn(p models.Product, id string) (models.FileNode, bool) {
	label, idx, ok := p.FindFile(id)
	if !ok {
		return models.FileNode{}, false
	}
	return p.FilesByStage[label][idx], true
}

// persist saves every product and turns the outcome into the notice for the mutation.
func (w *Workbench) persist(ctx context.Context, format string, args ...interface{}) Notice {
	text := fmt.Sprintf(format, args...)
	if err := w.store.Save(ctx, w.products); err != nil {
		w.degraded = true
		if errors.Is(err, hybridstorage.ErrRemoteUnavailable) {
			return transient("%s (saved locally)", text)
		}
		logger.Error("Save failed: %v", err)
		return transient("%s (not saved: %v)", text, err)
	}
	w.degraded = false
	return transient("%s", text)
}

func reject(err error) Notice {
	return Notice{Text: err.Error(), Blocking: errors.Is(err, engine.ErrStageHasFiles)}
}
