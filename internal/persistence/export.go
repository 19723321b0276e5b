package persistence

import (
	"bytes"
	"encoding/json"

	"github.com/natefinch/atomic"
)

// ExportJSON writes the indented JSON representation of value to path atomically
func ExportJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
