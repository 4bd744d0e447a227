package probe

import (
	"context"
	"fmt"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"
)

type lister struct {
	lines    entity.DirectoryListing
	firstErr error
	entries  int
}

// ListContents walks the whole OPFS depth-first. A directory that cannot be
// iterated gets an error line and its siblings are still listed; the result
// is then an error carrying the partial listing.
func ListContents(ctx context.Context, storage output.StoragePort) entity.BridgeData {
	l := &lister{lines: entity.DirectoryListing{}}

	err := withRoot(ctx, storage, func(_ output.StorageSession, root output.DirectoryHandle) error {
		l.walk(ctx, root, "", 0)
		return nil
	})
	if err != nil {
		return entity.BridgeData{
			Operation:       entity.OperationList,
			OperationResult: entity.Failure("Error accessing OPFS: " + entity.Describe(err)),
			Contents:        entity.DirectoryListing{},
		}
	}

	result := entity.Success(fmt.Sprintf("Listed %d entries.", l.entries))
	if l.firstErr != nil {
		result = entity.Failure("Error listing OPFS contents: " + entity.Describe(l.firstErr))
	}
	return entity.BridgeData{
		Operation:       entity.OperationList,
		OperationResult: result,
		Contents:        l.lines,
	}
}

func (l *lister) fail(depth int, path string, err error) {
	l.lines = append(l.lines, entity.ErrorLine(depth, path, err))
	if l.firstErr == nil {
		l.firstErr = err
	}
}

func (l *lister) walk(ctx context.Context, dir output.DirectoryHandle, path string, depth int) {
	entries, err := dir.Entries(ctx)
	if err != nil {
		l.fail(depth, path, err)
		return
	}

	for _, e := range entries {
		l.entries++
		if e.IsDir() {
			l.lines = append(l.lines, entity.DirectoryLine(depth, e.Name))
			childPath := joinPath(path, e.Name)
			child, err := dir.Directory(ctx, e.Name, false)
			if err != nil {
				l.fail(depth+1, childPath, err)
				continue
			}
			l.walk(ctx, child, childPath, depth+1)
			continue
		}
		l.lines = append(l.lines, entity.FileLine(depth, e.Name, sizeOf(ctx, dir, e.Name)))
	}
}

// sizeOf falls back to N/A instead of failing the traversal.
func sizeOf(ctx context.Context, dir output.DirectoryHandle, name string) string {
	f, err := dir.File(ctx, name, false)
	if err != nil {
		return entity.SizeUnknown
	}
	size, err := f.Size(ctx)
	if err != nil {
		return entity.SizeUnknown
	}
	return entity.FormatKB(size)
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// List posts the listing to the data slot.
func List() Probe {
	return func(ctx context.Context, env Env) error {
		data := ListContents(ctx, env.Storage)
		env.Logger.Debug("listing collected", "status", data.Status, "lines", len(data.Contents))
		return postData(env, entity.OperationList, data.OperationResult, data.Contents)
	}
}
