package ocr

import "encoding/json"

// Status is the lifecycle state the service reports for one submitted file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether no further transitions are expected for s without
// a new submission.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Unavailable marks a numeric field the service did not report.
const Unavailable = -1

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResultRecord is the service's summary of one processed file.
type ResultRecord struct {
	OriginalFilename string `json:"original_filename"`
	Status           Status `json:"status,omitempty"`
	// Stem is the server-side content key used for detail, PDF and image lookups.
	Stem           string  `json:"stem,omitempty"`
	Timestamp      string  `json:"timestamp,omitempty"`
	ProcessingTime float64 `json:"processing_time"`
	BlocksCount    int     `json:"blocks_count"`
	TextLength     int     `json:"text_length"`
	Error          string  `json:"error,omitempty"`
}

// StatusOr returns the reported status, or fallback when the record has none.
func (r ResultRecord) StatusOr(fallback Status) Status {
	if r.Status == "" {
		return fallback
	}
	return r.Status
}

// HasProcessingTime reports whether the service measured the processing time.
func (r ResultRecord) HasProcessingTime() bool { return r.ProcessingTime >= 0 }

// Reviewable returns the successful records, keeping their order.
func Reviewable(results []ResultRecord) []ResultRecord {
	var out []ResultRecord
	for _, r := range results {
		if r.Status == StatusSuccess {
			out = append(out, r)
		}
	}
	return out
}

// ResultList is the envelope returned by the upload and results endpoints.
type ResultList struct {
	Results []ResultRecord `json:"results"`
}

// Block is one detected text region. BBox is kept undecoded so that a
// malformed box does not prevent the rest of the record from decoding.
type Block struct {
	BBox json.RawMessage `json:"bbox,omitempty"`
	Text string          `json:"text,omitempty"`
}

// DetailRecord lists the text regions detected in one source image, in
// detection order, using the original image's pixel space.
type DetailRecord struct {
	Stem             string  `json:"stem"`
	OriginalFilename string  `json:"original_filename,omitempty"`
	Blocks           []Block `json:"blocks"`
}

// Statistics are the service's aggregate counters over all stored results.
type Statistics struct {
	Total     int     `json:"total"`
	Success   int     `json:"success"`
	Failed    int     `json:"failed"`
	TotalTime float64 `json:"total_time"`
	AvgTime   float64 `json:"avg_time"`
}
