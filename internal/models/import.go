package models

// ImportKind names the records an uploaded file creates.
type ImportKind string

const (
	ImportStudents ImportKind = "students"
	ImportSubjects ImportKind = "subjects"
	ImportClasses  ImportKind = "classes"
)

// RowStatus is the outcome of one imported or bulk-entered row.
type RowStatus string

const (
	RowSuccess RowStatus = "success"
	RowSkipped RowStatus = "skipped"
	RowFailed  RowStatus = "failed"
)

// RowResult reports what happened to a single input row. Row is 1-based and
// counts data rows after the header.
type RowResult struct {
	Row    int       `json:"row"`
	Status RowStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
	ID     string    `json:"id,omitempty"`
}

// RowResults summarises a batch.
type RowResults struct {
	Total   int         `json:"total"`
	Success int         `json:"success"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
}

// Add appends a row outcome and updates the counters.
func (r *RowResults) Add(row RowResult) {
	r.Rows = append(r.Rows, row)
	r.Total++
	switch row.Status {
	case RowSuccess:
		r.Success++
	case RowSkipped:
		r.Skipped++
	case RowFailed:
		r.Failed++
	}
}
