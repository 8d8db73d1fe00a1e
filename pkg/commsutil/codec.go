package commsutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

const codecLogPrefix = "commsutil:codec"

// internalErrorDoc is the reply of last resort when an outbound value
// cannot be marshaled. Reply subjects always receive a document.
var internalErrorDoc = []byte(`{"success":false,"error":"internal error"}`)

// EncodePayload serializes an outbound COMMS payload (request bodies,
// audit events) to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes a COMMS message payload into the target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// EncodeReply serializes a reply envelope, degrading to the canonical
// internal-error document when the value cannot be marshaled.
func EncodeReply(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode reply: %v", codecLogPrefix, err))
		return internalErrorDoc
	}
	return data
}
