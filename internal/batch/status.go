package batch

// Summary counts items per status.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Failed     int `json:"failed"`
}

// Summarize counts items per status.
func Summarize(items []Item) Summary {
	s := Summary{Total: len(items)}
	for _, it := range items {
		switch it.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// AllDone reports whether the batch is non-empty and every item is done.
func AllDone(items []Item) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if it.Status != StatusDone {
			return false
		}
	}
	return true
}

// AnyFailed reports whether at least one item is failed.
func AnyFailed(items []Item) bool {
	for _, it := range items {
		if it.Status == StatusFailed {
			return true
		}
	}
	return false
}

// IsProcessing reports whether at least one item is pending or processing.
func IsProcessing(items []Item) bool {
	for _, it := range items {
		if it.Status == StatusPending || it.Status == StatusProcessing {
			return true
		}
	}
	return false
}

// Settled reports whether no item is pending or processing.
func Settled(items []Item) bool {
	for _, it := range items {
		if it.Status == StatusPending || it.Status == StatusProcessing {
			return false
		}
	}
	return true
}
