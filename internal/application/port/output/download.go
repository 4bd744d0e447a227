package output

import "context"

// DownloadPort saves bytes on the user's machine. The destination is always
// chosen by a save-as step; the returned string is where the file landed.
type DownloadPort interface {
	SaveAs(ctx context.Context, fileName string, data []byte) (string, error)
}
