// pkg/model/rejected.go
package model

// RejectedRecord is one row that failed validation. It is written once to
// the quarantine artifact for its file and never enters the relational
// store.
type RejectedRecord struct {
	RowIndex int               `json:"row_index"`
	Fields   map[string]string `json:"fields"`
	Reasons  []string          `json:"reasons"`
	FileName string            `json:"file_name"`
}
