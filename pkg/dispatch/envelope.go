// Package dispatch routes backend API requests to registered actions and
// normalizes every outcome into the legacy JSON envelope.
package dispatch

import (
	"bytes"
	"encoding/json"
)

// Request is the JSON envelope for incoming backend calls. Two shapes
// are accepted: the legacy {module, action, payload} triplet and the
// canonical {action: "module.action", params} pair.
type Request struct {
	Module  string          `json:"module,omitempty"`
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Ctx     *CallContext    `json:"ctx,omitempty"`
}

// CallContext carries caller metadata for transports without headers
// (the COMMS binding). HTTP callers use the Authorization and
// X-Uchet-Shim headers instead; header values win when both are set.
type CallContext struct {
	Token string `json:"token,omitempty"`
	Shim  string `json:"shim,omitempty"`
}

// ActionName derives the dotted action name. Legacy requests carry
// module and action separately; canonical requests carry the dotted
// name in action. Empty means the name could not be derived.
func (r *Request) ActionName() string {
	if r.Module != "" {
		if r.Action == "" {
			return ""
		}
		return r.Module + "." + r.Action
	}
	return r.Action
}

// emptyDoc is what handlers see when the client sent no params.
var emptyDoc = json.RawMessage(`{}`)

// ParamsDoc returns the params document for the handler. The legacy
// payload field wins over params; absent or null documents normalize
// to an empty object.
func (r *Request) ParamsDoc() json.RawMessage {
	for _, doc := range []json.RawMessage{r.Payload, r.Params} {
		if len(doc) == 0 || bytes.Equal(doc, []byte("null")) {
			continue
		}
		return doc
	}
	return emptyDoc
}

// Response is the JSON envelope for backend call results. Success and
// failure are mutually exclusive: data travels only with success:true,
// the error string only with success:false.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// okResponse marshals a handler result into a success envelope. A nil
// result omits data entirely (legacy delete responses); a typed nil
// marshals to an explicit null.
func okResponse(result interface{}) Response {
	if result == nil {
		return Response{Success: true}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return failResponse(errInternal)
	}
	return Response{Success: true, Data: data}
}

// failResponse builds an error envelope from a boundary error.
func failResponse(err *Error) Response {
	return Response{Success: false, Error: err.Message}
}
