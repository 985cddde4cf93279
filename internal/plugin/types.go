// Package plugin discovers and runs external post-capture plugins.
package plugin

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionCaptureSaved is sent to plugins after a selfie was stored.
const ActionCaptureSaved = "capture.saved"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Description  string              `json:"description"`
	Executable   string              `json:"executable"`
	Actions      []string            `json:"actions"`
	ConfigSchema jsoniter.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the plugin declared action.
func (m Manifest) Handles(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action  string              `json:"action"`
	Gesture string              `json:"gesture"`
	Config  jsoniter.RawMessage `json:"config,omitempty"`
	Params  jsoniter.RawMessage `json:"params"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
