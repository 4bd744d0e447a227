package entity

import (
	"errors"
	"strings"
)

var ErrEmptyPath = errors.New("path is empty")

// PathSpecifier is a relative OPFS path split into its segments.
type PathSpecifier struct {
	segments []string
}

// ParsePath splits raw on "/" and drops empty segments.
func ParsePath(raw string) (PathSpecifier, error) {
	var segments []string
	for _, s := range strings.Split(raw, "/") {
		if s == "" {
			continue
		}
		segments = append(segments, s)
	}
	if len(segments) == 0 {
		return PathSpecifier{}, ErrEmptyPath
	}
	return PathSpecifier{segments: segments}, nil
}

func MustParsePath(raw string) PathSpecifier {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Dirs returns every segment except the leaf.
func (p PathSpecifier) Dirs() []string {
	if len(p.segments) == 0 {
		return nil
	}
	return append([]string(nil), p.segments[:len(p.segments)-1]...)
}

func (p PathSpecifier) Leaf() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

func (p PathSpecifier) Segments() []string {
	return append([]string(nil), p.segments...)
}

func (p PathSpecifier) IsZero() bool {
	return len(p.segments) == 0
}

func (p PathSpecifier) String() string {
	return strings.Join(p.segments, "/")
}
