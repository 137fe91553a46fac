package domain

import "encoding/json"

// Result is the uniform shape every dispatcher call resolves to. The
// request layer never lets a transport error escape as a panic or a
// bare error to UI code.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Err     string          `json:"error,omitempty"`

	// Offline marks a mutating call that was accepted into the offline
	// queue instead of reaching the server ("saved, will sync").
	Offline bool `json:"isOffline,omitempty"`

	// FromCache marks a read served without a network round-trip.
	FromCache bool `json:"-"`
}

// OK builds a successful result around payload.
func OK(payload json.RawMessage) Result {
	return Result{Success: true, Data: payload}
}

// Fail builds a failed result from err.
func Fail(err error) Result {
	return Result{Success: false, Err: err.Error()}
}

// Decode unmarshals a result payload into T.
func Decode[T any](r Result) (T, error) {
	var v T
	if len(r.Data) == 0 {
		return v, nil
	}
	err := json.Unmarshal(r.Data, &v)
	return v, err
}
