package bridge

import (
	"testing"

	"opfs-inspector/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_PostAndDrain(t *testing.T) {
	b := New()

	require.NoError(t, b.Post(SlotData, entity.Success("ok")))

	ev := <-b.Events()
	assert.Equal(t, EventDataReady, ev)

	data, err := b.Drain(SlotData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","message":"ok"}`, data)

	assert.False(t, b.Pending(SlotData))
}

func TestBridge_DrainEmpty(t *testing.T) {
	b := New()

	_, err := b.Drain(SlotDownload)
	assert.ErrorIs(t, err, entity.ErrSlotEmpty)
}

func TestBridge_SecondPostOverwrites(t *testing.T) {
	b := New()

	require.NoError(t, b.Post(SlotData, entity.Success("first")))
	require.NoError(t, b.Post(SlotData, entity.Success("second")))

	assert.Len(t, b.Events(), 1, "posts before a drain coalesce into one event")

	<-b.Events()
	data, err := b.Drain(SlotData)
	require.NoError(t, err)
	assert.Contains(t, data, "second")
	assert.NotContains(t, data, "first")
}

func TestBridge_SlotsAreIndependent(t *testing.T) {
	b := New()

	require.NoError(t, b.Post(SlotData, entity.Success("data")))
	require.NoError(t, b.Post(SlotDownload, entity.FilePayload{FileName: "a.txt"}))

	seen := map[Event]bool{}
	seen[<-b.Events()] = true
	seen[<-b.Events()] = true
	assert.True(t, seen[EventDataReady])
	assert.True(t, seen[EventDownloadReady])

	data, err := b.Drain(SlotDownload)
	require.NoError(t, err)
	assert.Contains(t, data, `"fileName":"a.txt"`)
	assert.True(t, b.Pending(SlotData))
}

func TestSlotFor(t *testing.T) {
	slot, ok := SlotFor(EventDownloadReady)
	assert.True(t, ok)
	assert.Equal(t, SlotDownload, slot)

	_, ok = SlotFor(Event("unknown"))
	assert.False(t, ok)

	assert.Equal(t, EventDataReady, EventFor(SlotData))
}
