package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"miniplm/models"
	"miniplm/utils"
)

// Field 리비전 메타데이터 필드
type Field string

const (
	FieldStatus            Field = "status"
	FieldPrice             Field = "price"
	FieldQuantity          Field = "quantity"
	FieldChangeDescription Field = "changeDescription"
)

// ParseField accepts the wire names and a few CLI spellings.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "status":
		return FieldStatus, nil
	case "price":
		return FieldPrice, nil
	case "quantity", "qty":
		return FieldQuantity, nil
	case "changedescription", "change_description", "description":
		return FieldChangeDescription, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
}

// Content is one uploaded payload and the metadata known at upload time.
type Content struct {
	Name       string
	ByteSize   int64
	MimeType   string
	BlobRef    string
	UploadedAt time.Time
	Status     models.FileStatus
	Price      string
	Quantity   *int
}

var newID = func(prefix string) string {
	return utils.MustGenerateID(prefix)
}

func newRevision(number int, c Content) models.Revision {
	ts := c.UploadedAt
	if ts.IsZero() {
		ts = utils.Now()
	}
	return models.Revision{
		ID:              newID("rev"),
		RevisionNumber:  number,
		Name:            c.Name,
		UploadTimestamp: utils.FormatTimestamp(ts),
		ByteSize:        c.ByteSize,
		MimeType:        c.MimeType,
		BlobRef:         c.BlobRef,
		Status:          models.StatusInWork,
		Price:           strings.TrimSpace(c.Price),
		Quantity:        c.Quantity,
	}
}

// NewFile creates a parent file whose revision 1 is the initial upload.
func NewFile(c Content) (models.FileNode, error) {
	if strings.TrimSpace(c.Name) == "" {
		return models.FileNode{}, ErrEmptyName
	}
	rev := newRevision(1, c)
	if c.Status != "" {
		st, err := models.ParseStatus(string(c.Status))
		if err != nil {
			return models.FileNode{}, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		rev.Status = st
	}
	return models.FileNode{
		ID:                    newID("file"),
		CurrentRevisionNumber: 1,
		Revisions:             []models.Revision{rev},
	}, nil
}

// CreateRevision appends revision len+1 and makes it current. Only the inherit fields
// are copied from the current revision; status always restarts at In-Work and the new
// revision starts without children.
func CreateRevision(file models.FileNode, c Content, inherit ...Field) (models.FileNode, error) {
	if len(file.Revisions) == 0 {
		return models.FileNode{}, fmt.Errorf("%w: file %s has no revisions", ErrRevisionNotFound, file.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = file.Name()
	}

	prev := file.Current()
	rev := newRevision(len(file.Revisions)+1, c)
	for _, f := range inherit {
		switch f {
		case FieldPrice:
			rev.Price = prev.Price
		case FieldQuantity:
			if prev.Quantity != nil {
				q := *prev.Quantity
				rev.Quantity = &q
			}
		case FieldStatus, FieldChangeDescription:
			// not inheritable
		default:
			return models.FileNode{}, fmt.Errorf("%w: %q", ErrInvalidField, f)
		}
	}
	if file.IsChildFile {
		rev.Quantity = nil
	}

	out := file.Clone()
	out.Revisions = append(out.Revisions, rev)
	out.CurrentRevisionNumber = rev.RevisionNumber
	return out, nil
}

// SelectRevision 현재 리비전 변경
func SelectRevision(file models.FileNode, number int) (models.FileNode, error) {
	if _, ok := file.Revision(number); !ok {
		return models.FileNode{}, fmt.Errorf("%w: %s has no revision %d", ErrRevisionNotFound, file.ID, number)
	}
	out := file.Clone()
	out.CurrentRevisionNumber = number
	return out, nil
}

// SetChangeDescription records the description of any revision after the fact.
func SetChangeDescription(file models.FileNode, number int, text string) (models.FileNode, error) {
	idx := revisionIndex(file, number)
	if idx < 0 {
		return models.FileNode{}, fmt.Errorf("%w: %s has no revision %d", ErrRevisionNotFound, file.ID, number)
	}
	out := file.Clone()
	out.Revisions[idx].ChangeDescription = text
	return out, nil
}

// UpdateMetadata writes value into the current revision, the only place the field lives.
func UpdateMetadata(file models.FileNode, field Field, value string) (models.FileNode, error) {
	idx := revisionIndex(file, file.CurrentRevisionNumber)
	if idx < 0 {
		return models.FileNode{}, fmt.Errorf("%w: %s has no current revision", ErrRevisionNotFound, file.ID)
	}
	out := file.Clone()
	rev := &out.Revisions[idx]

	switch field {
	case FieldStatus:
		st, err := models.ParseStatus(value)
		if err != nil {
			return models.FileNode{}, fmt.Errorf("%w: %q", ErrInvalidStatus, value)
		}
		rev.Status = st
	case FieldPrice:
		rev.Price = strings.TrimSpace(value)
	case FieldQuantity:
		if file.IsChildFile {
			return models.FileNode{}, fmt.Errorf("%w: child files have no quantity", ErrInvalidQuantity)
		}
		q, err := parseQuantity(value)
		if err != nil {
			return models.FileNode{}, err
		}
		rev.Quantity = q
	case FieldChangeDescription:
		rev.ChangeDescription = value
	default:
		return models.FileNode{}, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return out, nil
}

func parseQuantity(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQuantity, value)
	}
	return &n, nil
}

// VisibleChildren returns the children of parent attached under its current revision,
// in stage order.
func VisibleChildren(files []models.FileNode, parent models.FileNode) []models.FileNode {
	out := make([]models.FileNode, 0)
	if parent.IsChildFile {
		return out
	}
	for _, f := range files {
		if f.IsChildFile && f.ParentID == parent.ID && f.ParentRevisionAtAttachment == parent.CurrentRevisionNumber {
			out = append(out, f)
		}
	}
	return out
}

func revisionIndex(file models.FileNode, number int) int {
	for i, r := range file.Revisions {
		if r.RevisionNumber == number {
			return i
		}
	}
	return -1
}

// updateFile resolves id in the stage (any stage when label is empty) and replaces the
// node with fn's result. The returned product owns the changed stage slice only.
func updateFile(p models.Product, label, id string, fn func(models.FileNode) (models.FileNode, error)) (models.Product, error) {
	if label == "" {
		found, _, ok := p.FindFile(id)
		if !ok {
			return models.Product{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		label = found
	}
	files, ok := p.FilesByStage[label]
	if !ok || !p.HasStage(label) {
		return models.Product{}, fmt.Errorf("%w: %s", ErrNoSuchStage, label)
	}
	idx := indexOf(files, id)
	if idx < 0 {
		return models.Product{}, fmt.Errorf("%w: %s in %s", ErrFileNotFound, id, label)
	}

	updated, err := fn(files[idx])
	if err != nil {
		return models.Product{}, err
	}

	out := p.Clone()
	next := append([]models.FileNode(nil), files...)
	next[idx] = updated
	out.FilesByStage[label] = next
	return out, nil
}

// SelectFileRevision is SelectRevision addressed through the product tree.
func SelectFileRevision(p models.Product, label, id string, number int) (models.Product, error) {
	return updateFile(p, label, id, func(f models.FileNode) (models.FileNode, error) {
		return SelectRevision(f, number)
	})
}

// UpdateFileMetadata is UpdateMetadata addressed through the product tree.
func UpdateFileMetadata(p models.Product, label, id string, field Field, value string) (models.Product, error) {
	return updateFile(p, label, id, func(f models.FileNode) (models.FileNode, error) {
		return UpdateMetadata(f, field, value)
	})
}

// DescribeRevision is SetChangeDescription addressed through the product tree.
func DescribeRevision(p models.Product, label, id string, number int, text string) (models.Product, error) {
	return updateFile(p, label, id, func(f models.FileNode) (models.FileNode, error) {
		return SetChangeDescription(f, number, text)
	})
}

// ReviseFile uploads new content for an existing file (parent or child).
func ReviseFile(p models.Product, label, id string, c Content, inherit ...Field) (models.Product, error) {
	return updateFile(p, label, id, func(f models.FileNode) (models.FileNode, error) {
		return CreateRevision(f, c, inherit...)
	})
}

// LinkRevision records where a revision's content lives on the server. An empty blobRef
// keeps the current reference.
func LinkRevision(p models.Product, id string, number int, blobRef, remoteID string) (models.Product, error) {
	return updateFile(p, "", id, func(f models.FileNode) (models.FileNode, error) {
		idx := revisionIndex(f, number)
		if idx < 0 {
			return models.FileNode{}, fmt.Errorf("%w: %s has no revision %d", ErrRevisionNotFound, f.ID, number)
		}
		out := f.Clone()
		if blobRef != "" {
			out.Revisions[idx].BlobRef = blobRef
		}
		out.Revisions[idx].RemoteID = remoteID
		return out, nil
	})
}

func indexOf(files []models.FileNode, id string) int {
	for i, f := range files {
		if f.ID == id {
			return i
		}
	}
	return -1
}
