package sapops

import "context"

// BatchDetail is the outcome of one item in a batch
type BatchDetail struct {
	Index          int    `json:"index"`
	Success        bool   `json:"success"`
	DocumentNumber string `json:"document_number,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchResult summarizes a batch run
type BatchResult struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Details    []BatchDetail `json:"details"`
}

// BatchProcess applies fn to each item independently. A failing item is
// recorded and skipped; it never aborts the rest of the batch. This is fault
// isolation, not a transaction boundary.
func BatchProcess[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (string, error)) BatchResult {
	result := BatchResult{
		Total:   len(items),
		Details: make([]BatchDetail, 0, len(items)),
	}

	for i, item := range items {
		docNumber, err := fn(ctx, item)
		if err != nil {
			result.Failed++
			result.Details = append(result.Details, BatchDetail{
				Index: i, Success: false, Error: err.Error(),
			})
			continue
		}
		result.Successful++
		result.Details = append(result.Details, BatchDetail{
			Index: i, Success: true, DocumentNumber: docNumber,
		})
	}
	return result
}
