// Package settings defines the key-value configuration surface the overlay
// consumes, and a JSON-file-backed provider with change notifications.
package settings

import (
	"context"
	"encoding/json"
	"errors"
)

// Keys consumed by the overlay.
const (
	KeyIsEnabled   = "isEnabled"
	KeyTargetLang  = "targetLang"
	KeyGamePackage = "gamePackage"
)

// ErrProvider wraps storage failures. Consumers fail closed on it: the
// current translation state is kept until a retry succeeds.
var ErrProvider = errors.New("settings provider failure")

// Change carries one key's new value in a change notification. Raw is nil
// when the key was removed.
type Change struct {
	Raw json.RawMessage
}

// Provider is the storage surface the overlay consumes. Get and Set are
// asynchronous in the host runtime, hence the contexts; OnChange listeners
// are invoked sequentially after a successful Set.
type Provider interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]json.RawMessage) error
	OnChange(listener func(changes map[string]Change)) (unsubscribe func())
}

// Bool decodes a boolean value, returning fallback for missing keys.
func Bool(values map[string]json.RawMessage, key string, fallback bool) bool {
	raw, ok := values[key]
	if !ok || raw == nil {
		return fallback
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}

// String decodes a string value, returning fallback for missing keys.
func String(values map[string]json.RawMessage, key, fallback string) string {
	raw, ok := values[key]
	if !ok || raw == nil {
		return fallback
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}
