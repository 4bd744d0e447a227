// Package probe holds the operations evaluated against an inspected tab's
// OPFS. A probe never returns storage failures as Go errors: it converts
// them into an error-status result and leaves it in the tab's bridge.
package probe

import (
	"context"
	"fmt"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service/bridge"
	"opfs-inspector/internal/domain/entity"
)

// Env is what a probe can reach inside the inspected tab.
type Env struct {
	Storage output.StoragePort
	Bridge  *bridge.Bridge
	Logger  output.LoggerPort
}

// Probe is one remote invocation. The returned error is reserved for
// failures to deliver the result through the bridge.
type Probe func(ctx context.Context, env Env) error

// Name labels probes in logs.
func Name(op entity.Operation) string {
	return "probe:" + string(op)
}

func postData(env Env, op entity.Operation, result entity.OperationResult, contents entity.DirectoryListing) error {
	return env.Bridge.Post(bridge.SlotData, entity.BridgeData{
		Operation:       op,
		OperationResult: result,
		Contents:        contents,
	})
}

// withRoot opens a fresh session, resolves the root and runs fn. Handles are
// never kept past fn.
func withRoot(ctx context.Context, storage output.StoragePort, fn func(output.StorageSession, output.DirectoryHandle) error) error {
	session, err := storage.Open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	root, err := session.Root(ctx)
	if err != nil {
		return err
	}
	return fn(session, root)
}

// walk resolves segments below dir, creating directories when create is set.
func walk(ctx context.Context, dir output.DirectoryHandle, segments []string, create bool) (output.DirectoryHandle, error) {
	cur := dir
	for _, name := range segments {
		next, err := cur.Directory(ctx, name, create)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cur = next
	}
	return cur, nil
}

func invalidPath(raw string, err error) entity.OperationResult {
	return entity.Failure(fmt.Sprintf("Invalid path %q: %v", raw, err))
}
