package probe

import (
	"context"
	"encoding/base64"
	"fmt"

	"opfs-inspector/internal/application/port/output"
	"opfs-inspector/internal/application/service/bridge"
	"opfs-inspector/internal/domain/entity"
)

func encodeString(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// ReadFile resolves path without creating anything and returns its content
// as a FilePayload.
func ReadFile(ctx context.Context, storage output.StoragePort, path entity.PathSpecifier) (entity.FilePayload, error) {
	var payload entity.FilePayload
	err := withRoot(ctx, storage, func(_ output.StorageSession, root output.DirectoryHandle) error {
		dir, err := walk(ctx, root, path.Dirs(), false)
		if err != nil {
			return err
		}
		f, err := dir.File(ctx, path.Leaf(), false)
		if err != nil {
			return err
		}
		content, err := f.ReadBase64(ctx)
		if err != nil {
			return err
		}
		payload = entity.FilePayload{FileName: path.Leaf(), FileContentBase64: content}
		return nil
	})
	return payload, err
}

// WriteFile creates missing directories and the file, then replaces its
// content. Nothing is cleaned up if a step fails.
func WriteFile(ctx context.Context, storage output.StoragePort, path entity.PathSpecifier, contentBase64 string) error {
	return withRoot(ctx, storage, func(_ output.StorageSession, root output.DirectoryHandle) error {
		dir, err := walk(ctx, root, path.Dirs(), true)
		if err != nil {
			return err
		}
		f, err := dir.File(ctx, path.Leaf(), true)
		if err != nil {
			return err
		}
		return f.WriteBase64(ctx, contentBase64)
	})
}

// RemoveEntry removes the leaf of path from its parent directory.
func RemoveEntry(ctx context.Context, storage output.StoragePort, path entity.PathSpecifier, recursive bool) error {
	return withRoot(ctx, storage, func(_ output.StorageSession, root output.DirectoryHandle) error {
		parent, err := walk(ctx, root, path.Dirs(), false)
		if err != nil {
			return err
		}
		return parent.Remove(ctx, path.Leaf(), recursive)
	})
}

// PrepareDownload posts the file to the download slot, or an error result to
// the data slot.
func PrepareDownload(rawPath string) Probe {
	return func(ctx context.Context, env Env) error {
		path, err := entity.ParsePath(rawPath)
		if err != nil {
			return postData(env, entity.OperationDownload, invalidPath(rawPath, err), nil)
		}

		payload, err := ReadFile(ctx, env.Storage, path)
		if err != nil {
			env.Logger.Warn("download read failed", "path", path.String(), "error", err)
			return postData(env, entity.OperationDownload,
				entity.Failure(fmt.Sprintf("Error downloading %s: %s", path, entity.Describe(err))), nil)
		}
		return env.Bridge.Post(bridge.SlotDownload, payload)
	}
}

// Upload writes contentBase64 to rawPath, overwriting any existing file.
func Upload(rawPath, contentBase64 string) Probe {
	return func(ctx context.Context, env Env) error {
		path, err := entity.ParsePath(rawPath)
		if err != nil {
			return postData(env, entity.OperationUpload, invalidPath(rawPath, err), nil)
		}

		if err := WriteFile(ctx, env.Storage, path, contentBase64); err != nil {
			env.Logger.Warn("upload failed", "path", path.String(), "error", err)
			return postData(env, entity.OperationUpload,
				entity.Failure(fmt.Sprintf("Error uploading %s: %s", path, entity.Describe(err))), nil)
		}
		return postData(env, entity.OperationUpload,
			entity.Success(fmt.Sprintf("File uploaded to %s.", path)), nil)
	}
}

func Delete(rawPath string, recursive bool) Probe {
	return func(ctx context.Context, env Env) error {
		path, err := entity.ParsePath(rawPath)
		if err != nil {
			return postData(env, entity.OperationDelete, invalidPath(rawPath, err), nil)
		}

		if err := RemoveEntry(ctx, env.Storage, path, recursive); err != nil {
			env.Logger.Warn("delete failed", "path", path.String(), "recursive", recursive, "error", err)
			return postData(env, entity.OperationDelete,
				entity.Failure(fmt.Sprintf("Error deleting %s: %s", path, entity.Describe(err))), nil)
		}
		return postData(env, entity.OperationDelete,
			entity.Success(fmt.Sprintf("Deleted %s.", path)), nil)
	}
}

// SyncWrite hands data to the storage worker, which truncates and rewrites
// the file through a synchronous access handle.
func SyncWrite(rawPath string, data []byte) Probe {
	return func(ctx context.Context, env Env) error {
		path, err := entity.ParsePath(rawPath)
		if err != nil {
			return postData(env, entity.OperationSyncWrite, invalidPath(rawPath, err), nil)
		}

		session, err := env.Storage.Open(ctx)
		if err == nil {
			err = session.SyncWrite(ctx, path, data)
			session.Close()
		}
		if err != nil {
			env.Logger.Warn("sync write failed", "path", path.String(), "error", err)
			return postData(env, entity.OperationSyncWrite,
				entity.Failure(fmt.Sprintf("Error writing %s: %s", path, entity.Describe(err))), nil)
		}
		return postData(env, entity.OperationSyncWrite,
			entity.Success(fmt.Sprintf("Wrote %d bytes to %s.", len(data), path)), nil)
	}
}
