package service

import (
	"context"
	"testing"

	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/infrastructure/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabRegistry_AttachIsIdempotent(t *testing.T) {
	browser := memory.NewBrowser()
	tab, err := browser.OpenTab(context.Background(), "https://app.example/")
	require.NoError(t, err)

	reg := NewTabRegistry(browser)
	var hooked []entity.TabID
	reg.OnAttach(func(tc *TabContext) { hooked = append(hooked, tc.ID) })

	first, err := reg.Attach(tab.ID)
	require.NoError(t, err)
	second, err := reg.Attach(tab.ID)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NotNil(t, first.Bridge)
	assert.Equal(t, []entity.TabID{tab.ID}, hooked)
}

func TestTabRegistry_UnknownTab(t *testing.T) {
	reg := NewTabRegistry(memory.NewBrowser())

	_, err := reg.Attach("missing")
	assert.ErrorIs(t, err, entity.ErrTabNotFound)

	_, ok := reg.Get("missing")
	assert.False(t, ok)
}

func TestTabRegistry_AttachedAndDetach(t *testing.T) {
	browser := memory.NewBrowser()
	ctx := context.Background()
	a, _ := browser.OpenTab(ctx, "https://a.example/")
	b, _ := browser.OpenTab(ctx, "https://b.example/")

	reg := NewTabRegistry(browser)
	_, err := reg.Attach(b.ID)
	require.NoError(t, err)
	_, err = reg.Attach(a.ID)
	require.NoError(t, err)

	assert.Equal(t, []entity.TabID{a.ID, b.ID}, reg.Attached())

	reg.Detach(a.ID)
	assert.Equal(t, []entity.TabID{b.ID}, reg.Attached())
}
