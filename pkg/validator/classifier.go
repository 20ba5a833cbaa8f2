// pkg/validator/classifier.go
package validator

import (
	"github.com/sensorflow/pipeline/pkg/model"
	"github.com/sensorflow/pipeline/pkg/reader"
)

// ClassifiedBatch is the partition of one file's rows into accepted and
// rejected sets. Accepted preserves file order; each rejected record keeps
// its zero-based position among the file's data rows.
type ClassifiedBatch struct {
	FileName string
	Accepted []model.RawReading
	Rejected []model.RejectedRecord
}

// ClassifyBatch validates every row of a parsed file. Each row's verdict is
// independent of every other row's; a file with zero rows yields empty
// accepted and rejected sets.
func (v *Validator) ClassifyBatch(set *reader.RowSet, dataSource string) *ClassifiedBatch {
	batch := &ClassifiedBatch{
		FileName: set.FileName,
		Accepted: make([]model.RawReading, 0, len(set.Rows)),
		Rejected: []model.RejectedRecord{},
	}

	for i, row := range set.Rows {
		reading, violations := v.ValidateRow(row)
		if len(violations) > 0 {
			batch.Rejected = append(batch.Rejected, rejectedRecord(set.FileName, i, row, violations))
			continue
		}

		reading.FileName = set.FileName
		reading.DataSource = dataSource
		batch.Accepted = append(batch.Accepted, *reading)
	}

	return batch
}

func rejectedRecord(fileName string, index int, row reader.Row, violations []Violation) model.RejectedRecord {
	fields := make(map[string]string, len(row))
	for k, v := range row {
		fields[k] = v
	}

	reasons := make([]string, len(violations))
	for i, violation := range violations {
		reasons[i] = violation.String()
	}

	return model.RejectedRecord{
		RowIndex: index,
		Fields:   fields,
		Reasons:  reasons,
		FileName: fileName,
	}
}
