package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/vizq/internal/ir"
)

// storageValue converts a decoded JSON value into a value the driver can
// bind. Objects, arrays and other composite values are stored as canonical
// JSON text.
func storageValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, time.Time, []byte:
		return val, nil
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, nil
		}
		return val.String(), nil
	}

	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, fmt.Errorf("marshal nested value: %w", err)
	}
	return string(data), nil
}

// readValue normalizes a scanned value. BLOBs become strings.
func readValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
