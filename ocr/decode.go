package ocr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// UnmarshalJSON decodes a result record field by field. Missing or mistyped
// numeric fields become Unavailable; missing strings stay empty. A status that
// is present but not a string decodes as StatusFailed. A value that is not an
// object at all decodes as a record with every field defaulted.
func (r *ResultRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return fmt.Errorf("decode result record: %w", err)
		}
		fields = nil
	}
	*r = ResultRecord{
		OriginalFilename: stringField(fields["original_filename"]),
		Status:           statusField(fields["status"]),
		Stem:             stringField(fields["stem"]),
		Timestamp:        stringField(fields["timestamp"]),
		ProcessingTime:   numberField(fields["processing_time"]),
		BlocksCount:      intField(fields["blocks_count"]),
		TextLength:       intField(fields["text_length"]),
		Error:            stringField(fields["error"]),
	}
	return nil
}

// Box returns the block's bounding box. ok is false unless bbox holds exactly
// four finite numbers.
func (b Block) Box() (Region, bool) {
	if len(b.BBox) == 0 {
		return Region{}, false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(b.BBox, &parts); err != nil || len(parts) != 4 {
		return Region{}, false
	}
	var v [4]float64
	for i, p := range parts {
		n, ok := parseNumber(p)
		if !ok {
			return Region{}, false
		}
		v[i] = n
	}
	return Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

// NewBlock builds a block from numeric bbox components.
func NewBlock(bbox ...float64) Block {
	raw, _ := json.Marshal(bbox)
	return Block{BBox: raw}
}

func stringField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Timestamps occasionally arrive as epoch numbers.
	if n, ok := parseNumber(raw); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func statusField(raw json.RawMessage) Status {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return StatusFailed
	}
	return Status(s)
}

func numberField(raw json.RawMessage) float64 {
	if n, ok := parseNumber(raw); ok {
		return n
	}
	return Unavailable
}

func intField(raw json.RawMessage) int {
	n, ok := parseNumber(raw)
	if !ok || n != math.Trunc(n) {
		return Unavailable
	}
	return int(n)
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
