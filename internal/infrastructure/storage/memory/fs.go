// Package memory is an in-process OPFS. It reports the same error names as
// the browser implementation.
package memory

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"
)

const (
	msgNotFound     = "A requested file or directory could not be found at the time an operation was processed."
	msgTypeMismatch = "The path supplied exists, but was not an entry of requested type."
	msgNotEmpty     = "The object can not be modified in this way."
	msgBadBase64    = "The string to be decoded is not correctly encoded."
	msgClosed       = "The storage session has been closed."
)

var _ output.StoragePort = (*Origin)(nil)

type node struct {
	name     string
	dir      bool
	data     []byte
	children []*node
	removed  bool
}

func (n *node) child(name string) (*node, int) {
	for i, c := range n.children {
		if c.name == name {
			return c, i
		}
	}
	return nil, -1
}

// Origin is the OPFS of one storage origin.
type Origin struct {
	mu   sync.Mutex
	root *node

	rootErr    error
	entriesErr map[string]error
	sizeErr    map[string]error
}

func NewOrigin() *Origin {
	return &Origin{
		root:       &node{dir: true},
		entriesErr: make(map[string]error),
		sizeErr:    make(map[string]error),
	}
}

// FailRoot makes every later Open/Root fail with err (nil clears it).
func (o *Origin) FailRoot(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rootErr = err
}

// FailEntries makes iteration of the directory at path fail. "" is the root.
func (o *Origin) FailEntries(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entriesErr[clean(path)] = err
}

// FailSize makes size retrieval of the file at path fail.
func (o *Origin) FailSize(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sizeErr[clean(path)] = err
}

func (o *Origin) Open(ctx context.Context) (output.StorageSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{origin: o}, nil
}

// WriteFile seeds path with data, creating directories.
func (o *Origin) WriteFile(path string, data []byte) error {
	p, err := entity.ParsePath(path)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	n, err := o.resolveFile(p, true)
	if err != nil {
		return err
	}
	n.data = append([]byte(nil), data...)
	return nil
}

// MkdirAll seeds a directory path.
func (o *Origin) MkdirAll(path string) error {
	p, err := entity.ParsePath(path)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err = o.walk(p.Segments(), true)
	return err
}

// ReadFile returns a copy of the content at path.
func (o *Origin) ReadFile(path string) ([]byte, error) {
	p, err := entity.ParsePath(path)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	n, err := o.resolveFile(p, false)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), n.data...), nil
}

// Exists reports whether an entry exists at path.
func (o *Origin) Exists(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur := o.root
	for _, s := range strings.Split(clean(path), "/") {
		if s == "" {
			continue
		}
		next, _ := cur.child(s)
		if next == nil {
			return false
		}
		cur = next
	}
	return true
}

func (o *Origin) walk(segments []string, create bool) (*node, error) {
	cur := o.root
	for _, s := range segments {
		next, err := lookup(cur, s, true, create)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (o *Origin) resolveFile(p entity.PathSpecifier, create bool) (*node, error) {
	dir, err := o.walk(p.Dirs(), create)
	if err != nil {
		return nil, err
	}
	return lookup(dir, p.Leaf(), false, create)
}

func lookup(parent *node, name string, dir, create bool) (*node, error) {
	if parent.removed {
		return nil, entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	c, _ := parent.child(name)
	if c != nil {
		if c.dir != dir {
			return nil, entity.NewStorageError(entity.ErrNameTypeMismatch, msgTypeMismatch)
		}
		return c, nil
	}
	if !create {
		return nil, entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	c = &node{name: name, dir: dir}
	parent.children = append(parent.children, c)
	return c, nil
}

func markRemoved(n *node) {
	n.removed = true
	for _, c := range n.children {
		markRemoved(c)
	}
}

func clean(path string) string {
	return strings.Trim(path, "/")
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

type session struct {
	origin *Origin
	mu     sync.Mutex
	closed bool
}

func (s *session) Root(ctx context.Context) (output.DirectoryHandle, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	s.origin.mu.Lock()
	defer s.origin.mu.Unlock()
	if s.origin.rootErr != nil {
		return nil, s.origin.rootErr
	}
	return &dirHandle{s: s, n: s.origin.root}, nil
}

func (s *session) SyncWrite(ctx context.Context, path entity.PathSpecifier, data []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	o := s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rootErr != nil {
		return o.rootErr
	}
	n, err := o.resolveFile(path, true)
	if err != nil {
		return err
	}
	n.data = append(n.data[:0:0], data...)
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return entity.NewStorageError("InvalidStateError", msgClosed)
	}
	return nil
}

type dirHandle struct {
	s    *session
	n    *node
	path string
}

var _ output.DirectoryHandle = (*dirHandle)(nil)

func (d *dirHandle) Name() string { return d.n.name }

func (d *dirHandle) Entries(ctx context.Context) ([]entity.Entry, error) {
	if err := d.s.check(ctx); err != nil {
		return nil, err
	}
	o := d.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.entriesErr[d.path]; err != nil {
		return nil, err
	}
	if d.n.removed {
		return nil, entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	entries := make([]entity.Entry, 0, len(d.n.children))
	for _, c := range d.n.children {
		kind := entity.EntryFile
		if c.dir {
			kind = entity.EntryDirectory
		}
		entries = append(entries, entity.Entry{Name: c.name, Kind: kind})
	}
	return entries, nil
}

func (d *dirHandle) Directory(ctx context.Context, name string, create bool) (output.DirectoryHandle, error) {
	if err := d.s.check(ctx); err != nil {
		return nil, err
	}
	o := d.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	n, err := lookup(d.n, name, true, create)
	if err != nil {
		return nil, err
	}
	return &dirHandle{s: d.s, n: n, path: join(d.path, name)}, nil
}

func (d *dirHandle) File(ctx context.Context, name string, create bool) (output.FileHandle, error) {
	if err := d.s.check(ctx); err != nil {
		return nil, err
	}
	o := d.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	n, err := lookup(d.n, name, false, create)
	if err != nil {
		return nil, err
	}
	return &fileHandle{s: d.s, n: n, path: join(d.path, name)}, nil
}

func (d *dirHandle) Remove(ctx context.Context, name string, recursive bool) error {
	if err := d.s.check(ctx); err != nil {
		return err
	}
	o := d.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	c, i := d.n.child(name)
	if c == nil || d.n.removed {
		return entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	if c.dir && len(c.children) > 0 && !recursive {
		return entity.NewStorageError(entity.ErrNameInvalidModification, msgNotEmpty)
	}
	d.n.children = append(d.n.children[:i], d.n.children[i+1:]...)
	markRemoved(c)
	return nil
}

type fileHandle struct {
	s    *session
	n    *node
	path string
}

var _ output.FileHandle = (*fileHandle)(nil)

func (f *fileHandle) Name() string { return f.n.name }

func (f *fileHandle) Size(ctx context.Context) (int64, error) {
	if err := f.s.check(ctx); err != nil {
		return 0, err
	}
	o := f.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.sizeErr[f.path]; err != nil {
		return 0, err
	}
	if f.n.removed {
		return 0, entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	return int64(len(f.n.data)), nil
}

func (f *fileHandle) ReadBase64(ctx context.Context) (string, error) {
	if err := f.s.check(ctx); err != nil {
		return "", err
	}
	o := f.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	if f.n.removed {
		return "", entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	return base64.StdEncoding.EncodeToString(f.n.data), nil
}

func (f *fileHandle) WriteBase64(ctx context.Context, content string) error {
	if err := f.s.check(ctx); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return entity.NewStorageError("InvalidCharacterError", msgBadBase64)
	}
	o := f.s.origin
	o.mu.Lock()
	defer o.mu.Unlock()
	if f.n.removed {
		return entity.NewStorageError(entity.ErrNameNotFound, msgNotFound)
	}
	f.n.data = data
	return nil
}
