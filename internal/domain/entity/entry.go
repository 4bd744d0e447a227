package entity

type EntryKind string

const (
	EntryFile      EntryKind = "file"
	EntryDirectory EntryKind = "directory"
)

// Entry is one child of an OPFS directory as reported by its iterator.
type Entry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"kind"`
}

func (e Entry) IsDir() bool {
	return e.Kind == EntryDirectory
}
