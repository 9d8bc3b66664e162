package application

// BulkResult aggregates a per-item bulk operation.
type BulkResult struct {
	SuccessCount int         `json:"success_count"`
	ErrorCount   int         `json:"error_count"`
	Errors       []BulkError `json:"errors"`
}

type BulkError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (r *BulkResult) ok() { r.SuccessCount++ }

func (r *BulkResult) fail(i int, err error) {
	r.ErrorCount++
	r.Errors = append(r.Errors, BulkError{Index: i, Message: clientMessage(err)})
}

func newBulkResult() BulkResult {
	return BulkResult{Errors: []BulkError{}}
}
