package action

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var nullDoc = []byte("null")

// DecodeParams fills into from the raw params document. Absent, empty,
// or null params leave into at its zero value so each handler can
// report its own required fields; anything else must be valid JSON of
// the expected shape.
func DecodeParams(raw json.RawMessage, into interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullDoc) {
		return nil
	}
	if err := json.Unmarshal(trimmed, into); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
