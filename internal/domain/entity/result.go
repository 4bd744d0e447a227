package entity

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// OperationResult is the outcome of a single probe or relay step.
type OperationResult struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func Success(message string) OperationResult {
	return OperationResult{Status: StatusSuccess, Message: message}
}

func Failure(message string) OperationResult {
	return OperationResult{Status: StatusError, Message: message}
}

func (r OperationResult) OK() bool {
	return r.Status == StatusSuccess
}

// Operation tags every bridge payload so the background relay knows which
// message type to publish for it.
type Operation string

const (
	OperationList      Operation = "list"
	OperationUpload    Operation = "upload"
	OperationDelete    Operation = "delete"
	OperationDownload  Operation = "download"
	OperationSyncWrite Operation = "sync-write"
)

// BridgeData is the JSON document a probe leaves in the opfs-debug-data slot.
// Contents is only set for listings.
type BridgeData struct {
	Operation Operation `json:"operation"`
	OperationResult
	Contents DirectoryListing `json:"contents,omitempty"`
}

// FilePayload carries whole-file content across string-only boundaries.
type FilePayload struct {
	FileName          string `json:"fileName"`
	FileContentBase64 string `json:"fileContentBase64"`
}
