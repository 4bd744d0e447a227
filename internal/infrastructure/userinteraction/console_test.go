package userinteraction

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"opfs-inspector/internal/application/port/input"
	"opfs-inspector/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestConsolePanel_ShowView(t *testing.T) {
	var out bytes.Buffer
	u := NewConsolePanelWith(strings.NewReader(""), &out, "downloads")

	u.ShowView(context.Background(), input.View{
		Status:      "Listed 2 entries.",
		StatusClass: "success",
		Contents: entity.DirectoryListing{
			"📁 docs/",
			"    📄 a.txt (0.01 KB)",
		},
	})

	assert.Equal(t, "✓ Listed 2 entries.\n📁 docs/\n    📄 a.txt (0.01 KB)\n", out.String())
}

func TestConsolePanel_ShowErrorStatus(t *testing.T) {
	var out bytes.Buffer
	u := NewConsolePanelWith(strings.NewReader(""), &out, "downloads")

	u.ShowStatus(context.Background(), "Error: NotFoundError: missing", "error")

	assert.Equal(t, "Error: NotFoundError: missing\n", out.String())
}

func TestConsolePanel_Choose(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "accept default", input: "\n", want: filepath.Join("downloads", "a.txt")},
		{name: "answer without newline", input: "/tmp/x.txt", want: "/tmp/x.txt"},
		{name: "cancel", input: "-\n", wantErr: entity.ErrDownloadCancelled},
		{name: "explicit file", input: "/tmp/out.txt\n", want: "/tmp/out.txt"},
		{name: "existing directory", input: dir + "\n", want: filepath.Join(dir, "a.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			u := NewConsolePanelWith(strings.NewReader(tt.input), &out, "downloads")

			got, err := u.Choose(context.Background(), "a.txt")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[SAVE AS]")
		})
	}
}

func TestConsolePanel_ChooseClosedInput(t *testing.T) {
	u := NewConsolePanelWith(strings.NewReader(""), &bytes.Buffer{}, "downloads")

	_, err := u.Choose(context.Background(), "a.txt")
	assert.Error(t, err)
}

func TestConsolePanel_ChooseCancelledContext(t *testing.T) {
	u := NewConsolePanelWith(strings.NewReader("\n"), &bytes.Buffer{}, "downloads")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Choose(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
