package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`id: (\S+)`)

type cli struct {
	t     *testing.T
	cache string
	dir   string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	return &cli{t: t, cache: filepath.Join(dir, "cache.db"), dir: dir}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--offline", "--cache", c.cache}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "plmctl %v", args)
	return out
}

func (c *cli) file(name, body string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func uploadedID(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestStageLifecycle(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustRun("stage", "add"), "Stage S1 added (saved locally)")
	assert.Contains(t, c.mustRun("iteration", "add"), "Iteration i1 added")

	out := c.mustRun("ls")
	assert.Contains(t, out, "* 0 Sample Product")
	assert.Contains(t, out, "S1 [Stage]")
	assert.Contains(t, out, "i1 [Iteration] *")

	c.mustRun("stage", "rm", "i1")
	assert.NotContains(t, c.mustRun("ls"), "i1")
}

func TestUploadChildAndRevisions(t *testing.T) {
	c := newCLI(t)
	c.mustRun("stage", "add")

	partID := uploadedID(t, c.mustRun("upload", c.file("part.stl", "solid part")))
	boltID := uploadedID(t, c.mustRun("child", partID, c.file("bolt.stl", "solid bolt")))

	out := c.mustRun("ls")
	assert.Contains(t, out, "part.stl")
	assert.Contains(t, out, "- bolt.stl")
	assert.Contains(t, out, boltID)

	c.mustRun("set", partID, "price", "12.50")
	out = c.mustRun("upload", "--stage", "S1", c.file("part.stl", "solid part v2"))
	assert.Contains(t, out, "as revision 2")
	assert.Equal(t, partID, uploadedID(t, out))

	// 새 리비전에서는 자식이 보이지 않음
	out = c.mustRun("ls")
	assert.Contains(t, out, "rev 2/2")
	assert.Contains(t, out, "12.50")
	assert.NotContains(t, out, "bolt.stl")

	c.mustRun("rev", "select", partID, "1")
	assert.Contains(t, c.mustRun("ls"), "- bolt.stl")

	// 자식 리비전은 원래 부모 리비전 아래에 남는다
	out = c.mustRun("rev", "upload", boltID, c.file("bolt-v2.stl", "solid bolt 2"))
	assert.Contains(t, out, "rev: 2")
	out = c.mustRun("ls")
	assert.Contains(t, out, "- bolt-v2.stl")
	assert.Regexp(t, `bolt-v2\.stl[^\n]*rev 2/2`, out)
	_, err := c.run("rev", "upload", "file-missing", c.file("x.stl", "x"))
	assert.Error(t, err)

	c.mustRun("describe", partID, "1", "first", "cut")
	u := c.mustRun("url", partID)
	assert.Contains(t, u, "data:")

	_, err = c.run("stage", "rm", "S1")
	assert.ErrorContains(t, err, "remove its files first")

	assert.Contains(t, c.mustRun("rm", partID), "Removed 2 file(s)")
	c.mustRun("stage", "rm", "S1")
}

func TestMoveAndValidation(t *testing.T) {
	c := newCLI(t)
	c.mustRun("stage", "add")
	c.mustRun("stage", "add")
	id := uploadedID(t, c.mustRun("upload", "--stage", "S1", c.file("a.stl", "a")))

	c.mustRun("mv", id, "S1", "S2")
	assert.Regexp(t, `S2 \[Stage\]( \*)?\n\s+a\.stl`, c.mustRun("ls"))

	other := uploadedID(t, c.mustRun("upload", "--stage", "S1", c.file("a.stl", "other a")))
	_, err := c.run("mv", other, "S1", "S2")
	assert.ErrorContains(t, err, "already in S2")

	_, err = c.run("set", id, "status", "Shipped")
	assert.Error(t, err)
	_, err = c.run("set", id, "weight", "1")
	assert.Error(t, err)
	_, err = c.run("rev", "select", id, "x")
	assert.Error(t, err)
}

func TestProducts(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustRun("product", "add", "Gear", "box"), `Product "Gear box" added`)
	assert.Contains(t, c.mustRun("ls"), "* 1 Gear box")

	assert.Contains(t, c.mustRun("--product", "0", "ls"), "* 0 Sample Product")
	// --product 선택은 저장됨
	assert.Contains(t, c.mustRun("ls"), "* 0 Sample Product")
	assert.Contains(t, c.mustRun("--product", "gear box", "ls"), "* 1 Gear box")

	_, err := c.run("--product", "nope", "ls")
	assert.ErrorContains(t, err, `product "nope" not found`)
}

func TestGetAndStatusOffline(t *testing.T) {
	c := newCLI(t)
	c.mustRun("stage", "add")
	id := uploadedID(t, c.mustRun("upload", c.file("notes.txt", "torque 12Nm")))

	assert.Equal(t, "torque 12Nm", c.mustRun("get", id))

	dest := filepath.Join(c.dir, "out.txt")
	c.mustRun("get", id, "-o", dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "torque 12Nm", string(data))

	assert.Equal(t, "offline\n", c.mustRun("status"))
	_, err = c.run("link", id)
	assert.ErrorIs(t, err, errOffline)
}
