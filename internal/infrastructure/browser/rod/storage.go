package rod

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var (
	_ output.StoragePort     = (*pageStorage)(nil)
	_ output.StorageSession  = (*session)(nil)
	_ output.DirectoryHandle = (*directory)(nil)
	_ output.FileHandle      = (*file)(nil)
)

var errSessionClosed = entity.NewStorageError("InvalidStateError", "The storage session has been closed.")

// pageStorage reaches the OPFS of the origin loaded in one page.
type pageStorage struct {
	page    *rod.Page
	timeout time.Duration
}

func (s *pageStorage) Open(ctx context.Context) (output.StorageSession, error) {
	return &session{page: s.page, timeout: s.timeout}, nil
}

// session owns every remote handle it hands out and releases them on Close.
type session struct {
	page    *rod.Page
	timeout time.Duration

	mu      sync.Mutex
	objects []*proto.RuntimeRemoteObject
	closed  bool
}

func (s *session) Root(ctx context.Context) (output.DirectoryHandle, error) {
	obj, err := s.object(ctx, nil, rootJS)
	if err != nil {
		return nil, err
	}
	return &directory{s: s, obj: obj, name: ""}, nil
}

func (s *session) SyncWrite(ctx context.Context, path entity.PathSpecifier, data []byte) error {
	if path.IsZero() {
		return entity.ErrEmptyPath
	}
	_, err := s.value(ctx, nil, syncWriteJS, syncWriteWorker, path.Segments(), encodeBase64(data))
	return err
}

func (s *session) Close() error {
	s.mu.Lock()
	objects := s.objects
	s.objects = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for _, obj := range objects {
		if err := s.page.Release(obj); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *session) eval(ctx context.Context, this *proto.RuntimeRemoteObject, opts *rod.EvalOptions) (*proto.RuntimeRemoteObject, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errSessionClosed
	}

	if this != nil {
		opts = opts.This(this)
	}
	page := s.page.Context(ctx)
	if s.timeout > 0 {
		page = page.Timeout(s.timeout)
	}
	res, err := page.Evaluate(opts.ByPromise())
	if err != nil {
		return nil, storageError(err)
	}
	return res, nil
}

// object evaluates js and keeps the result as a remote reference.
func (s *session) object(ctx context.Context, this *proto.RuntimeRemoteObject, js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	obj, err := s.eval(ctx, this, rod.Eval(js, args...).ByObject())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.objects = append(s.objects, obj)
	s.mu.Unlock()
	return obj, nil
}

func (s *session) value(ctx context.Context, this *proto.RuntimeRemoteObject, js string, args ...interface{}) (gson.JSON, error) {
	res, err := s.eval(ctx, this, rod.Eval(js, args...))
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

type directory struct {
	s    *session
	obj  *proto.RuntimeRemoteObject
	name string
}

func (d *directory) Name() string { return d.name }

func (d *directory) Entries(ctx context.Context) ([]entity.Entry, error) {
	v, err := d.s.value(ctx, d.obj, entriesJS)
	if err != nil {
		return nil, err
	}
	return entriesFrom(v), nil
}

func (d *directory) Directory(ctx context.Context, name string, create bool) (output.DirectoryHandle, error) {
	obj, err := d.s.object(ctx, d.obj, directoryJS, name, create)
	if err != nil {
		return nil, err
	}
	return &directory{s: d.s, obj: obj, name: name}, nil
}

func (d *directory) File(ctx context.Context, name string, create bool) (output.FileHandle, error) {
	obj, err := d.s.object(ctx, d.obj, fileJS, name, create)
	if err != nil {
		return nil, err
	}
	return &file{s: d.s, obj: obj, name: name}, nil
}

func (d *directory) Remove(ctx context.Context, name string, recursive bool) error {
	_, err := d.s.value(ctx, d.obj, removeJS, name, recursive)
	return err
}

type file struct {
	s    *session
	obj  *proto.RuntimeRemoteObject
	name string
}

func (f *file) Name() string { return f.name }

func (f *file) Size(ctx context.Context) (int64, error) {
	v, err := f.s.value(ctx, f.obj, sizeJS)
	if err != nil {
		return 0, err
	}
	return int64(v.Num()), nil
}

func (f *file) ReadBase64(ctx context.Context) (string, error) {
	v, err := f.s.value(ctx, f.obj, readBase64JS)
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (f *file) WriteBase64(ctx context.Context, content string) error {
	_, err := f.s.value(ctx, f.obj, writeBase64JS, content)
	return err
}

func entriesFrom(v gson.JSON) []entity.Entry {
	items := v.Arr()
	entries := make([]entity.Entry, 0, len(items))
	for _, item := range items {
		kind := entity.EntryFile
		if item.Get("kind").Str() == "directory" {
			kind = entity.EntryDirectory
		}
		entries = append(entries, entity.Entry{Name: item.Get("name").Str(), Kind: kind})
	}
	return entries
}

// storageError turns a page exception into a StorageError carrying the
// DOMException name. Anything else (transport, timeout) is wrapped as is.
func storageError(err error) error {
	var evalErr *rod.EvalError
	if !errors.As(err, &evalErr) || evalErr.RuntimeExceptionDetails == nil {
		return fmt.Errorf("cdp: %w", err)
	}
	desc := evalErr.Text
	if evalErr.Exception != nil && evalErr.Exception.Description != "" {
		desc = evalErr.Exception.Description
	}
	return parseException(desc)
}

// parseException reads "Name: message" from the first line of an exception
// description.
func parseException(desc string) *entity.StorageError {
	line, _, _ := strings.Cut(desc, "\n")
	line = strings.TrimSpace(strings.TrimPrefix(line, "Uncaught "))
	name, msg, ok := strings.Cut(line, ": ")
	if !ok || !isIdentifier(name) {
		return entity.NewStorageError(entity.ErrNameGeneric, line)
	}
	return entity.NewStorageError(name, msg)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return true
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
