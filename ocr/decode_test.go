package ocr

import (
	"encoding/json"
	"testing"
)

func TestResultRecordLenientDecode(t *testing.T) {
	var rec ResultRecord
	data := `{"original_filename":"a.png","stem":"a","processing_time":"slow","blocks_count":3}`
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if rec.OriginalFilename != "a.png" || rec.Stem != "a" {
		t.Fatalf("unexpected identity fields: %+v", rec)
	}
	if rec.Status != "" {
		t.Fatalf("expected empty status, got %q", rec.Status)
	}
	if got := rec.StatusOr(StatusFailed); got != StatusFailed {
		t.Fatalf("StatusOr() = %q, want failed", got)
	}
	if rec.ProcessingTime != Unavailable || rec.HasProcessingTime() {
		t.Fatalf("mistyped processing_time should be unavailable, got %v", rec.ProcessingTime)
	}
	if rec.BlocksCount != 3 {
		t.Fatalf("unexpected blocks_count: %d", rec.BlocksCount)
	}
	if rec.TextLength != Unavailable {
		t.Fatalf("missing text_length should be unavailable, got %d", rec.TextLength)
	}
}

func TestResultRecordRoundTripKeepsSentinel(t *testing.T) {
	in := ResultRecord{OriginalFilename: "b.png", Status: StatusSuccess, ProcessingTime: Unavailable, BlocksCount: 2, TextLength: Unavailable}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out ResultRecord
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestResultListSkipsNothingOnBadRecord(t *testing.T) {
	var list ResultList
	data := `{"results":[{"original_filename":"a.png","status":"success"},{"original_filename":7},{"status":"failed","error":"boom"}]}`
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(list.Results) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list.Results))
	}
	if list.Results[1].OriginalFilename != "7" {
		t.Fatalf("numeric filename should be stringified, got %q", list.Results[1].OriginalFilename)
	}
	if list.Results[2].Error != "boom" {
		t.Fatalf("unexpected error text: %q", list.Results[2].Error)
	}
}

func TestResultListDefaultsNonObjectRecords(t *testing.T) {
	var list ResultList
	data := `{"results":[{"original_filename":"a.png","status":"success"},5,"x",null]}`
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(list.Results) != 4 {
		t.Fatalf("expected 4 records, got %d", len(list.Results))
	}
	if got := list.Results[0]; got.OriginalFilename != "a.png" || got.Status != StatusSuccess {
		t.Fatalf("valid record lost: %+v", got)
	}
	for i, rec := range list.Results[1:] {
		if rec.OriginalFilename != "" || rec.Status != "" {
			t.Fatalf("record %d: expected defaulted identity, got %+v", i+1, rec)
		}
		if rec.ProcessingTime != Unavailable || rec.BlocksCount != Unavailable || rec.TextLength != Unavailable {
			t.Fatalf("record %d: expected unavailable numbers, got %+v", i+1, rec)
		}
	}
}

func TestResultRecordRejectsInvalidJSON(t *testing.T) {
	var rec ResultRecord
	if err := rec.UnmarshalJSON([]byte(`{"original_filename":`)); err == nil {
		t.Fatalf("UnmarshalJSON() expected error for truncated input")
	}
}

func TestResultRecordMistypedStatusIsFailed(t *testing.T) {
	tests := []struct {
		data string
		want Status
	}{
		{`{"status":3}`, StatusFailed},
		{`{"status":true}`, StatusFailed},
		{`{"status":{"code":1}}`, StatusFailed},
		{`{"status":null}`, ""},
		{`{}`, ""},
		{`{"status":"processing"}`, StatusProcessing},
	}
	for _, tt := range tests {
		var rec ResultRecord
		if err := json.Unmarshal([]byte(tt.data), &rec); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.data, err)
		}
		if rec.Status != tt.want {
			t.Fatalf("Unmarshal(%s) status = %q, want %q", tt.data, rec.Status, tt.want)
		}
	}
}

func TestBlockBox(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		want Region
	}{
		{name: "valid", raw: `[10, 20, 30, 40]`, ok: true, want: Region{X: 10, Y: 20, Width: 30, Height: 40}},
		{name: "three components", raw: `[1, 2, 3]`, ok: false},
		{name: "five components", raw: `[1, 2, 3, 4, 5]`, ok: false},
		{name: "string component", raw: `[1, "2", 3, 4]`, ok: false},
		{name: "null component", raw: `[1, null, 3, 4]`, ok: false},
		{name: "not an array", raw: `{"x":1}`, ok: false},
		{name: "missing", raw: ``, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Block{BBox: json.RawMessage(tt.raw)}.Box()
			if ok != tt.ok {
				t.Fatalf("Box() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("Box() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetailRecordDecodesMalformedBoxes(t *testing.T) {
	var d DetailRecord
	data := `{"stem":"scan","blocks":[{"bbox":[1,2,3]},{"bbox":"oops"},{"bbox":[0,0,5,5],"text":"hi"}]}`
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(d.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(d.Blocks))
	}
	if _, ok := d.Blocks[2].Box(); !ok {
		t.Fatalf("expected last block to be valid")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusSuccess, StatusFailed, StatusSkipped} {
		if !s.Terminal() {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing, Status("queued"), ""} {
		if s.Terminal() {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}
