package memory

import (
	"context"
	"encoding/base64"
	"testing"

	"opfs-inspector/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRoot(t *testing.T, o *Origin) (context.Context, *dirHandle) {
	t.Helper()
	ctx := context.Background()
	s, err := o.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	root, err := s.Root(ctx)
	require.NoError(t, err)
	return ctx, root.(*dirHandle)
}

func TestOrigin_EntriesKeepInsertionOrder(t *testing.T) {
	o := NewOrigin()
	require.NoError(t, o.WriteFile("zeta.txt", []byte("z")))
	require.NoError(t, o.MkdirAll("alpha"))
	require.NoError(t, o.WriteFile("beta.txt", nil))

	ctx, root := openRoot(t, o)
	entries, err := root.Entries(ctx)
	require.NoError(t, err)

	assert.Equal(t, []entity.Entry{
		{Name: "zeta.txt", Kind: entity.EntryFile},
		{Name: "alpha", Kind: entity.EntryDirectory},
		{Name: "beta.txt", Kind: entity.EntryFile},
	}, entries)
}

func TestOrigin_LookupErrors(t *testing.T) {
	o := NewOrigin()
	require.NoError(t, o.WriteFile("a.txt", []byte("x")))
	ctx, root := openRoot(t, o)

	_, err := root.File(ctx, "missing", false)
	assert.Equal(t, entity.ErrNameNotFound, entity.ErrorName(err))

	_, err = root.Directory(ctx, "a.txt", false)
	assert.Equal(t, entity.ErrNameTypeMismatch, entity.ErrorName(err))

	_, err = root.Directory(ctx, "a.txt", true)
	assert.Equal(t, entity.ErrNameTypeMismatch, entity.ErrorName(err))
}

func TestOrigin_RemoveNonEmptyDirectory(t *testing.T) {
	o := NewOrigin()
	require.NoError(t, o.WriteFile("d/e/f.txt", []byte("x")))
	ctx, root := openRoot(t, o)

	err := root.Remove(ctx, "d", false)
	assert.Equal(t, entity.ErrNameInvalidModification, entity.ErrorName(err))
	assert.True(t, o.Exists("d/e/f.txt"))

	require.NoError(t, root.Remove(ctx, "d", true))
	assert.False(t, o.Exists("d"))

	err = root.Remove(ctx, "d", true)
	assert.True(t, entity.IsNotFound(err))
}

func TestOrigin_WriteBase64Truncates(t *testing.T) {
	o := NewOrigin()
	require.NoError(t, o.WriteFile("a.txt", []byte("a much longer original body")))
	ctx, root := openRoot(t, o)

	f, err := root.File(ctx, "a.txt", false)
	require.NoError(t, err)
	require.NoError(t, f.WriteBase64(ctx, base64.StdEncoding.EncodeToString([]byte("short"))))

	data, err := o.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))

	err = f.WriteBase64(ctx, "***")
	assert.Equal(t, "InvalidCharacterError", entity.ErrorName(err))
	data, _ = o.ReadFile("a.txt")
	assert.Equal(t, "short", string(data), "bad input must not touch the file")
}

func TestOrigin_Faults(t *testing.T) {
	o := NewOrigin()
	require.NoError(t, o.WriteFile("d/b.txt", []byte("x")))
	boom := entity.NewStorageError(entity.ErrNameNotAllowed, "denied")

	o.FailEntries("d", boom)
	o.FailSize("d/b.txt", boom)

	ctx, root := openRoot(t, o)
	d, err := root.Directory(ctx, "d", false)
	require.NoError(t, err)
	_, err = d.Entries(ctx)
	assert.ErrorIs(t, err, boom)

	f, err := d.File(ctx, "b.txt", false)
	require.NoError(t, err)
	_, err = f.Size(ctx)
	assert.ErrorIs(t, err, boom)

	o.FailRoot(boom)
	s, err := o.Open(ctx)
	require.NoError(t, err)
	_, err = s.Root(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestSession_ClosedRejectsUse(t *testing.T) {
	o := NewOrigin()
	ctx := context.Background()
	s, err := o.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Root(ctx)
	assert.Equal(t, "InvalidStateError", entity.ErrorName(err))
}

func TestSession_SyncWrite(t *testing.T) {
	o := NewOrigin()
	require.NoError(t, o.WriteFile("logs/app.log", []byte("previous content that is long")))
	ctx := context.Background()
	s, err := o.Open(ctx)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SyncWrite(ctx, entity.MustParsePath("logs/app.log"), []byte("new")))
	require.NoError(t, s.SyncWrite(ctx, entity.MustParsePath("fresh/dir/x.bin"), []byte{0, 1, 2}))

	data, err := o.ReadFile("logs/app.log")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	data, err = o.ReadFile("fresh/dir/x.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)
}

func TestBrowser_TabsShareOriginStorage(t *testing.T) {
	b := NewBrowser()
	ctx := context.Background()

	first, err := b.OpenTab(ctx, "https://app.example/index.html")
	require.NoError(t, err)
	second, err := b.OpenTab(ctx, "https://app.example/other")
	require.NoError(t, err)
	third, err := b.OpenTab(ctx, "https://elsewhere.example/")
	require.NoError(t, err)

	o1, err := b.Origin(first.ID)
	require.NoError(t, err)
	o2, err := b.Origin(second.ID)
	require.NoError(t, err)
	o3, err := b.Origin(third.ID)
	require.NoError(t, err)

	assert.Same(t, o1, o2)
	assert.NotSame(t, o1, o3)

	tabs, err := b.Tabs(ctx)
	require.NoError(t, err)
	assert.Len(t, tabs, 3)

	_, err = b.Storage("nope")
	assert.ErrorIs(t, err, entity.ErrTabNotFound)

	_, err = b.OpenTab(ctx, "not a url")
	assert.Error(t, err)
}
