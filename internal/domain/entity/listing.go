package entity

import (
	"fmt"
	"strings"
)

const (
	DirectoryIcon = "📁"
	FileIcon      = "📄"
	ErrorIcon     = "❌"

	IndentUnit    = "    "
	SizeUnknown   = "N/A"
	EmptyOPFSText = "OPFS is empty for this origin."
	bytesPerKB    = 1024.0
)

// DirectoryListing holds display lines in pre-order traversal order.
type DirectoryListing []string

func Indent(depth int) string {
	return strings.Repeat(IndentUnit, depth)
}

func DirectoryLine(depth int, name string) string {
	return fmt.Sprintf("%s%s %s/", Indent(depth), DirectoryIcon, name)
}

// FileLine renders a file entry; size is already formatted (see FormatKB).
func FileLine(depth int, name, size string) string {
	return fmt.Sprintf("%s%s %s (%s KB)", Indent(depth), FileIcon, name, size)
}

func ErrorLine(depth int, dir string, err error) string {
	if dir == "" {
		return fmt.Sprintf("%s%s Error reading OPFS root: %s", Indent(depth), ErrorIcon, Describe(err))
	}
	return fmt.Sprintf("%s%s Error reading %s/: %s", Indent(depth), ErrorIcon, dir, Describe(err))
}

// FormatKB converts a byte count to kilobytes with two decimals.
func FormatKB(size int64) string {
	return fmt.Sprintf("%.2f", float64(size)/bytesPerKB)
}
