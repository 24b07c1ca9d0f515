package reconcile

import (
	"bytes"
	"encoding/json"

	"github.com/wudi/ocrdesk/ocr"
)

// Tabs of the surrounding UI. The engine only records which one is active.
const (
	TabUpload     = "upload"
	TabProcessing = "processing"
	TabStatistics = "statistics"
	TabReview     = "review"
	TabResults    = "results"
)

// ValidTab reports whether tab names a known view.
func ValidTab(tab string) bool {
	switch tab {
	case TabUpload, TabProcessing, TabStatistics, TabReview, TabResults:
		return true
	}
	return false
}

const (
	MinBatchSize     = 1
	MaxBatchSize     = 10
	DefaultBatchSize = 5
)

// ClampBatchSize bounds n to [MinBatchSize, MaxBatchSize].
func ClampBatchSize(n int) int {
	if n < MinBatchSize {
		return MinBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// GenericFailure is shown for failed items that carry no reason.
const GenericFailure = "processing failed"

// Item tracks one submitted file.
type Item struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Status   ocr.Status        `json:"status"`
	Progress int               `json:"progress"`
	Result   *ocr.ResultRecord `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// FailureReason returns the text to show next to a failed item.
func (it Item) FailureReason() string {
	if it.Error != "" {
		return it.Error
	}
	if it.Result != nil && it.Result.Error != "" {
		return it.Result.Error
	}
	return GenericFailure
}

func (it Item) equal(o Item) bool {
	if it.ID != o.ID || it.Name != o.Name || it.Status != o.Status || it.Progress != o.Progress || it.Error != o.Error {
		return false
	}
	if it.Result == nil || o.Result == nil {
		return it.Result == o.Result
	}
	return *it.Result == *o.Result
}

// State is the engine's canonical view: the current batch plus the flags the
// UI persists alongside it.
type State struct {
	ActiveTab    string
	Batch        []Item
	IsProcessing bool
	BatchSize    int
}

// DefaultState is the state of a fresh install.
func DefaultState() State {
	return State{ActiveTab: TabUpload, BatchSize: DefaultBatchSize}
}

// Clone returns a deep copy safe to hand to callers.
func (s State) Clone() State {
	out := s
	if s.Batch != nil {
		out.Batch = make([]Item, len(s.Batch))
		for i, it := range s.Batch {
			if it.Result != nil {
				r := *it.Result
				it.Result = &r
			}
			out.Batch[i] = it
		}
	}
	return out
}

// Done reports whether the batch is non-empty and every item is terminal.
func (s State) Done() bool {
	if len(s.Batch) == 0 {
		return false
	}
	for _, it := range s.Batch {
		if !it.Status.Terminal() {
			return false
		}
	}
	return true
}

// Summary counts items per outcome.
type Summary struct {
	Total     int
	Success   int
	Failed    int
	Skipped   int
	Completed int
	Pending   int
}

func (s State) Summary() Summary {
	sum := Summary{Total: len(s.Batch)}
	for _, it := range s.Batch {
		switch it.Status {
		case ocr.StatusSuccess:
			sum.Success++
		case ocr.StatusFailed:
			sum.Failed++
		case ocr.StatusSkipped:
			sum.Skipped++
		}
		if it.Status.Terminal() {
			sum.Completed++
		}
	}
	sum.Pending = sum.Total - sum.Completed
	return sum
}

// StateKey is the storage key of the persisted UI state. The schema version
// is part of the key.
const StateKey = "ba_ui_state_v1"

type snapshot struct {
	ActiveTab       string `json:"activeTab"`
	ProcessingQueue []Item `json:"processingQueue"`
	IsProcessing    bool   `json:"isProcessing"`
	BatchSize       int    `json:"batchSize"`
}

func encodeSnapshot(s State) ([]byte, error) {
	queue := s.Batch
	if queue == nil {
		queue = []Item{}
	}
	return json.Marshal(snapshot{
		ActiveTab:       s.ActiveTab,
		ProcessingQueue: queue,
		IsProcessing:    s.IsProcessing,
		BatchSize:       s.BatchSize,
	})
}

// decodeSnapshot overlays the fields found in data onto base. Each field is
// decoded on its own; a field that is missing or has the wrong type is left
// at its base value and reported in skipped.
func decodeSnapshot(data []byte, base State) (State, []string) {
	out := base.Clone()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return out, []string{"*"}
	}
	var skipped []string
	field := func(name string) (json.RawMessage, bool) {
		raw, ok := fields[name]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			return nil, false
		}
		return raw, true
	}

	var tab string
	if raw, ok := field("activeTab"); ok && json.Unmarshal(raw, &tab) == nil && ValidTab(tab) {
		out.ActiveTab = tab
	} else {
		skipped = append(skipped, "activeTab")
	}

	var queue []Item
	if raw, ok := field("processingQueue"); ok && isArray(raw) && json.Unmarshal(raw, &queue) == nil {
		out.Batch = queue
	} else {
		skipped = append(skipped, "processingQueue")
	}

	var processing bool
	if raw, ok := field("isProcessing"); ok && json.Unmarshal(raw, &processing) == nil {
		out.IsProcessing = processing
	} else {
		skipped = append(skipped, "isProcessing")
	}

	var size float64
	if raw, ok := field("batchSize"); ok && json.Unmarshal(raw, &size) == nil {
		out.BatchSize = ClampBatchSize(int(size))
	} else {
		skipped = append(skipped, "batchSize")
	}
	return out, skipped
}

func isArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
