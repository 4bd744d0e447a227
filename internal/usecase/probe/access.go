package probe

import (
	"context"
	"fmt"
	"time"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/domain/entity"
)

const testFileContent = "Hello from OPFS Test!"

// TestAccess confirms the root is reachable and writable by creating,
// re-opening and removing a scratch file. Unlike the other probes its result
// is returned directly to the caller.
func TestAccess(ctx context.Context, storage output.StoragePort, now time.Time) entity.OperationResult {
	name := fmt.Sprintf("opfs-test-%d.txt", now.UnixMilli())

	err := withRoot(ctx, storage, func(_ output.StorageSession, root output.DirectoryHandle) error {
		f, err := root.File(ctx, name, true)
		if err != nil {
			return err
		}
		if err := f.WriteBase64(ctx, encodeString(testFileContent)); err != nil {
			return err
		}
		if _, err := root.File(ctx, name, false); err != nil {
			return err
		}
		return root.Remove(ctx, name, false)
	})
	if err != nil {
		return entity.Failure(fmt.Sprintf("Error in content script: %s (%s)", entity.ErrorMessage(err), entity.ErrorName(err)))
	}

	return entity.Success(fmt.Sprintf(
		"navigator.storage.getDirectory() accessible. Test file '%s' created and deleted.", name))
}
