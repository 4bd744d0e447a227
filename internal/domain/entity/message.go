package entity

type MessageType string

const (
	MsgTestOPFSAccess       MessageType = "TEST_OPFS_ACCESS"
	MsgOPFSAccessResult     MessageType = "OPFS_ACCESS_RESULT"
	MsgDataFromContent      MessageType = "OPFS_DATA_FROM_CONTENT_SCRIPT"
	MsgContentsResultBridge MessageType = "OPFS_CONTENTS_RESULT_DOM_BRIDGE"
	MsgDownloadData         MessageType = "OPFS_DOWNLOAD_DATA"
	MsgOperationStatus      MessageType = "OPFS_OPERATION_STATUS"
)

func (t MessageType) String() string {
	return string(t)
}

// Message is one hop on the relay chain. Result is set on messages addressed
// to the panel, Data and Download on messages coming from a content relay.
type Message struct {
	Type     MessageType  `json:"type"`
	TabID    TabID        `json:"tabId,omitempty"`
	Result   *RelayResult `json:"result,omitempty"`
	Data     *BridgeData  `json:"data,omitempty"`
	Download *FilePayload `json:"download,omitempty"`
}

// RelayResult is what the panel receives: an operation result plus, for
// listings, the collected contents.
type RelayResult struct {
	Operation Operation `json:"operation,omitempty"`
	OperationResult
	Contents DirectoryListing `json:"contents,omitempty"`
}

func ResultOf(r OperationResult) *RelayResult {
	return &RelayResult{OperationResult: r}
}
