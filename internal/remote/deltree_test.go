package remote

import (
	"net/textproto"
	"os"
	"path"
	"strings"
	"testing"
	"time"
)

// cursorFake simulates a stateful-cursor server: a directory map, a current
// directory, and an op log for asserting call order.
type cursorFake struct {
	cwd        string
	dirs       map[string][]fakeEntry
	ops        []string
	failDelete map[string]bool
}

type fakeEntry struct {
	name string
	dir  bool
}

func newCursorFake() *cursorFake {
	return &cursorFake{
		cwd:        "/",
		dirs:       map[string][]fakeEntry{"/": {}},
		failDelete: map[string]bool{},
	}
}

func (c *cursorFake) addDir(p string) {
	c.dirs[p] = []fakeEntry{}
	parent := parentDir(p)
	c.dirs[parent] = append(c.dirs[parent], fakeEntry{name: path.Base(p), dir: true})
}

func (c *cursorFake) addFile(p string) {
	parent := parentDir(p)
	c.dirs[parent] = append(c.dirs[parent], fakeEntry{name: path.Base(p), dir: false})
}

func (c *cursorFake) dropEntry(full string) {
	parent := parentDir(full)
	name := path.Base(full)
	kept := c.dirs[parent][:0]
	for _, e := range c.dirs[parent] {
		if e.name != name {
			kept = append(kept, e)
		}
	}
	c.dirs[parent] = kept
}

func (c *cursorFake) log(op string) { c.ops = append(c.ops, op) }

func (c *cursorFake) currentDir() (string, error) {
	c.log("pwd")
	return c.cwd, nil
}

func (c *cursorFake) changeDir(p string) error {
	c.log("cwd " + p)
	if _, ok := c.dirs[p]; !ok {
		return &textproto.Error{Code: 550, Msg: "No such directory"}
	}
	c.cwd = p
	return nil
}

func (c *cursorFake) listLines(p string) ([]string, error) {
	target := p
	if target == "" {
		target = c.cwd
	}
	c.log("list " + target)
	entries, ok := c.dirs[target]
	if !ok {
		return nil, &textproto.Error{Code: 550, Msg: "No such directory"}
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, FormatLong(e.name, e.dir, 4, "", "u", "g", time.Now()))
	}
	return lines, nil
}

func (c *cursorFake) deleteFile(p string) error {
	c.log("dele " + p)
	if c.failDelete[p] {
		return &textproto.Error{Code: 550, Msg: "Permission denied"}
	}
	full := p
	if !strings.HasPrefix(p, "/") {
		full = joinRemote(c.cwd, p)
	}
	c.dropEntry(full)
	return nil
}

func (c *cursorFake) removeDir(p string) error {
	c.log("rmd " + p)
	children, ok := c.dirs[p]
	if !ok {
		return &textproto.Error{Code: 550, Msg: "No such directory"}
	}
	if len(children) > 0 {
		return &textproto.Error{Code: 550, Msg: "Directory not empty"}
	}
	delete(c.dirs, p)
	c.dropEntry(p)
	return nil
}

func opIndex(t *testing.T, ops []string, op string) int {
	t.Helper()
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	t.Fatalf("op %q not found in %v", op, ops)
	return -1
}

func lastOpIndex(t *testing.T, ops []string, op string) int {
	t.Helper()
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i] == op {
			return i
		}
	}
	t.Fatalf("op %q not found in %v", op, ops)
	return -1
}

func countOps(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func TestStatefulEmptyDirIsPlainRemove(t *testing.T) {
	c := newCursorFake()
	c.addDir("/a")

	if err := deleteTreeStateful(c, "/a"); err != nil {
		t.Fatalf("delete empty dir: %v", err)
	}
	if len(c.ops) != 1 || c.ops[0] != "rmd /a" {
		t.Errorf("empty directory should need a single remove, got ops %v", c.ops)
	}
	if _, ok := c.dirs["/a"]; ok {
		t.Error("/a still present after delete")
	}
}

func TestStatefulDeletesFilesBeforeDirsLeafFirst(t *testing.T) {
	c := newCursorFake()
	c.addDir("/a")
	c.addFile("/a/f")
	c.addDir("/a/b")
	c.addFile("/a/b/g")

	if err := deleteTreeStateful(c, "/a"); err != nil {
		t.Fatalf("delete tree: %v", err)
	}

	// Files go before sibling directories, leaves before their parents.
	if opIndex(t, c.ops, "dele /a/f") > opIndex(t, c.ops, "rmd /a/b") {
		t.Errorf("file /a/f deleted after directory /a/b was touched: %v", c.ops)
	}
	if opIndex(t, c.ops, "dele /a/b/g") > lastOpIndex(t, c.ops, "rmd /a/b") {
		t.Errorf("leaf /a/b/g deleted after /a/b was removed: %v", c.ops)
	}
	if lastOpIndex(t, c.ops, "rmd /a/b") > lastOpIndex(t, c.ops, "rmd /a") {
		t.Errorf("child /a/b removed after parent /a: %v", c.ops)
	}

	// The cursor is restored before any child is deleted.
	if opIndex(t, c.ops, "cwd /") > opIndex(t, c.ops, "dele /a/f") {
		t.Errorf("cursor not restored before recursion: %v", c.ops)
	}
	if c.cwd != "/" {
		t.Errorf("cursor left at %s, want /", c.cwd)
	}

	if len(c.dirs) != 1 || len(c.dirs["/"]) != 0 {
		t.Errorf("tree not fully removed: %v", c.dirs)
	}
}

func TestStatefulFallsBackToRelativeDelete(t *testing.T) {
	c := newCursorFake()
	c.addDir("/a")
	c.addFile("/a/f")
	// Absolute-path delete refused; delete by bare name succeeds.
	c.failDelete["/a/f"] = true

	if err := deleteTreeStateful(c, "/a"); err != nil {
		t.Fatalf("delete with relative fallback: %v", err)
	}

	failed := opIndex(t, c.ops, "dele /a/f")
	entered := lastOpIndex(t, c.ops, "cwd /a")
	retried := opIndex(t, c.ops, "dele f")
	restored := lastOpIndex(t, c.ops, "cwd /")
	if !(failed < entered && entered < retried && retried < restored) {
		t.Errorf("fallback sequence wrong: %v", c.ops)
	}
	if _, ok := c.dirs["/a"]; ok {
		t.Error("/a still present after fallback delete")
	}
}

func TestStatefulPartialFailureKeepsGoing(t *testing.T) {
	c := newCursorFake()
	c.addDir("/a")
	c.addFile("/a/f")
	c.addFile("/a/g")
	c.failDelete["/a/f"] = true
	c.failDelete["f"] = true

	err := deleteTreeStateful(c, "/a")
	if err == nil {
		t.Fatal("expected error for undeletable file")
	}
	if !strings.Contains(err.Error(), "partially deleted /a") {
		t.Errorf("error %q does not report partial deletion", err)
	}
	// Siblings are still attempted after a failure.
	opIndex(t, c.ops, "dele /a/g")
	// The final directory remove is skipped; only the initial probe ran.
	if n := countOps(c.ops, "rmd /a"); n != 1 {
		t.Errorf("rmd /a attempted %d times, want 1: %v", n, c.ops)
	}
}

// pathFake simulates a stateless-path server for the bottom-up walk.
type pathFake struct {
	dirs    map[string][]fakeEntry
	ops     []string
	listErr map[string]bool
}

func newPathFake() *pathFake {
	return &pathFake{
		dirs:    map[string][]fakeEntry{"/": {}},
		listErr: map[string]bool{},
	}
}

func (f *pathFake) addDir(p string) {
	f.dirs[p] = []fakeEntry{}
	parent := parentDir(p)
	f.dirs[parent] = append(f.dirs[parent], fakeEntry{name: path.Base(p), dir: true})
}

func (f *pathFake) addFile(p string) {
	parent := parentDir(p)
	f.dirs[parent] = append(f.dirs[parent], fakeEntry{name: path.Base(p), dir: false})
}

func (f *pathFake) dropEntry(full string) {
	parent := parentDir(full)
	name := path.Base(full)
	kept := f.dirs[parent][:0]
	for _, e := range f.dirs[parent] {
		if e.name != name {
			kept = append(kept, e)
		}
	}
	f.dirs[parent] = kept
}

func (f *pathFake) log(op string) { f.ops = append(f.ops, op) }

func (f *pathFake) entry(p string) (fakeEntry, bool) {
	for _, e := range f.dirs[parentDir(p)] {
		if e.name == path.Base(p) {
			return e, true
		}
	}
	return fakeEntry{}, false
}

func (f *pathFake) stat(p string) (os.FileInfo, error) {
	f.log("stat " + p)
	if _, ok := f.dirs[p]; ok {
		return fakeInfo{name: path.Base(p), dir: true}, nil
	}
	if e, ok := f.entry(p); ok {
		return fakeInfo{name: e.name, dir: e.dir}, nil
	}
	return nil, os.ErrNotExist
}

func (f *pathFake) readDir(p string) ([]os.FileInfo, error) {
	f.log("readdir " + p)
	if f.listErr[p] {
		return nil, os.ErrPermission
	}
	entries, ok := f.dirs[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, fakeInfo{name: e.name, dir: e.dir})
	}
	return infos, nil
}

func (f *pathFake) remove(p string) error {
	f.log("remove " + p)
	if _, ok := f.entry(p); !ok {
		return os.ErrNotExist
	}
	f.dropEntry(p)
	return nil
}

func (f *pathFake) removeDirectory(p string) error {
	f.log("rmdir " + p)
	children, ok := f.dirs[p]
	if !ok {
		return os.ErrNotExist
	}
	if len(children) > 0 {
		return os.ErrExist
	}
	delete(f.dirs, p)
	f.dropEntry(p)
	return nil
}

type fakeInfo struct {
	name string
	dir  bool
}

func (fi fakeInfo) Name() string { return fi.name }
func (fi fakeInfo) Size() int64  { return 0 }
func (fi fakeInfo) Mode() os.FileMode {
	if fi.dir {
		return os.ModeDir | 0o755
	}
	return 0o644
}
func (fi fakeInfo) ModTime() time.Time { return time.Time{} }
func (fi fakeInfo) IsDir() bool        { return fi.dir }
func (fi fakeInfo) Sys() any           { return nil }

func TestStatelessFileGetsPlainRemove(t *testing.T) {
	f := newPathFake()
	f.addFile("/f")

	if err := deleteTreeStateless(f, "/f"); err != nil {
		t.Fatalf("delete file path: %v", err)
	}
	opIndex(t, f.ops, "remove /f")
	for _, op := range f.ops {
		if strings.HasPrefix(op, "readdir") {
			t.Errorf("file path should not be listed: %v", f.ops)
		}
	}
}

func TestStatelessDeletesFilesBeforeDirsLeafFirst(t *testing.T) {
	f := newPathFake()
	f.addDir("/a")
	f.addFile("/a/f")
	f.addDir("/a/b")
	f.addFile("/a/b/g")

	if err := deleteTreeStateless(f, "/a"); err != nil {
		t.Fatalf("delete tree: %v", err)
	}
	if opIndex(t, f.ops, "remove /a/f") > opIndex(t, f.ops, "readdir /a/b") {
		t.Errorf("file /a/f removed after directory /a/b was entered: %v", f.ops)
	}
	if opIndex(t, f.ops, "remove /a/b/g") > opIndex(t, f.ops, "rmdir /a/b") {
		t.Errorf("leaf /a/b/g removed after /a/b: %v", f.ops)
	}
	if opIndex(t, f.ops, "rmdir /a/b") > opIndex(t, f.ops, "rmdir /a") {
		t.Errorf("child /a/b removed after parent /a: %v", f.ops)
	}
	if len(f.dirs) != 1 || len(f.dirs["/"]) != 0 {
		t.Errorf("tree not fully removed: %v", f.dirs)
	}
}

func TestStatelessListFailureTriesPlainRemove(t *testing.T) {
	f := newPathFake()
	f.addDir("/a")
	// Listing races with a concurrent emptying of the directory; a plain
	// remove still succeeds because the directory is empty.
	f.listErr["/a"] = true

	if err := deleteTreeStateless(f, "/a"); err != nil {
		t.Fatalf("expected race fallback to succeed, got %v", err)
	}
	opIndex(t, f.ops, "rmdir /a")
}

func TestStatelessPartialFailureKeepsGoing(t *testing.T) {
	f := newPathFake()
	f.addDir("/a")
	f.addFile("/a/f")
	f.addDir("/a/b")
	f.addFile("/a/b/g")
	f.listErr["/a/b"] = true

	err := deleteTreeStateless(f, "/a")
	if err == nil {
		t.Fatal("expected error for unlistable subdirectory")
	}
	if !strings.Contains(err.Error(), "partially deleted /a") {
		t.Errorf("error %q does not report partial deletion", err)
	}
	// The sibling file was still removed.
	opIndex(t, f.ops, "remove /a/f")
	// The final parent remove is skipped.
	if countOps(f.ops, "rmdir /a") != 0 {
		t.Errorf("rmdir /a attempted despite failed child: %v", f.ops)
	}
}
