package v1alpha1

import "encoding/json"

// Envelope is the wire shape of every API response:
// {"success": true, "data": ...} or {"success": false, "error": "..."}.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HasData reports whether the envelope carried a non-null payload.
func (e Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

func SuccessEnvelope(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Success: true, Data: raw}, nil
}

func ErrorEnvelope(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}
