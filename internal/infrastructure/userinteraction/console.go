package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"opfs-inspector/internal/application/port/input"
	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/infrastructure/download"

	"github.com/fatih/color"
)

var _ download.Chooser = (*ConsolePanel)(nil)

// cancelAnswer declines a save-as prompt.
const cancelAnswer = "-"

// ConsolePanel draws panel views on a terminal and asks for save-as
// destinations.
type ConsolePanel struct {
	out        io.Writer
	reader     *bufio.Reader
	defaultDir string
}

func NewConsolePanel(defaultDir string) *ConsolePanel {
	return NewConsolePanelWith(os.Stdin, color.Output, defaultDir)
}

func NewConsolePanelWith(in io.Reader, out io.Writer, defaultDir string) *ConsolePanel {
	return &ConsolePanel{
		out:        out,
		reader:     bufio.NewReader(in),
		defaultDir: defaultDir,
	}
}

// ShowView prints the status line followed by the listing.
func (u *ConsolePanel) ShowView(ctx context.Context, view input.View) {
	u.ShowStatus(ctx, view.Status, view.StatusClass)
	for _, line := range view.Contents {
		u.showLine(line)
	}
}

func (u *ConsolePanel) ShowStatus(ctx context.Context, status, class string) {
	switch class {
	case "success":
		color.New(color.FgGreen).Fprintf(u.out, "✓ %s\n", status)
	case "error":
		color.New(color.FgRed, color.Bold).Fprintf(u.out, "%s\n", status)
	default:
		color.New(color.FgYellow).Fprintf(u.out, "%s\n", status)
	}
}

func (u *ConsolePanel) showLine(line string) {
	trimmed := strings.TrimLeft(line, " ")
	switch {
	case strings.HasPrefix(trimmed, entity.ErrorIcon):
		color.New(color.FgRed).Fprintln(u.out, line)
	case strings.HasPrefix(trimmed, entity.DirectoryIcon):
		color.New(color.FgCyan, color.Bold).Fprintln(u.out, line)
	default:
		fmt.Fprintln(u.out, line)
	}
}

// Choose asks where to save suggested. An empty answer accepts the default,
// "-" cancels, a directory answer keeps the suggested name.
func (u *ConsolePanel) Choose(ctx context.Context, suggested string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	def := filepath.Join(u.defaultDir, suggested)
	color.New(color.FgCyan, color.Bold).Fprintf(u.out, "\n[SAVE AS] %s (Enter to accept, %s to cancel)\n> ", def, cancelAnswer)

	answer, err := u.reader.ReadString('\n')
	if err != nil && (err != io.EOF || answer == "") {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	answer = strings.TrimSpace(answer)

	switch {
	case answer == "":
		return def, nil
	case answer == cancelAnswer:
		return "", entity.ErrDownloadCancelled
	case strings.HasSuffix(answer, string(os.PathSeparator)) || isDir(answer):
		return filepath.Join(answer, suggested), nil
	default:
		return answer, nil
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
