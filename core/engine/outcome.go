// Package engine executes statement sequences against a session with
// all-or-nothing semantics and normalizes the results for serialization.
package engine

import "encoding/json"

// ResultKind tags a StatementResult as a row-returning SELECT or a
// row-modifying statement.
type ResultKind string

const (
	KindSelect ResultKind = "SELECT"
	KindModify ResultKind = "MODIFY"
)

// StatementResult is the outcome of one executed statement. Position is
// 1-based over the statement sequence as written, so skipped empty
// statements leave gaps rather than renumbering their successors.
type StatementResult struct {
	Position     int
	SQL          string
	Kind         ResultKind
	Rows         []map[string]any
	RowCount     int
	AffectedRows int64

	// columnDBTypes maps column name to the driver-reported database type
	// (e.g. DECIMAL), consumed by result normalization.
	columnDBTypes map[string]string
}

// MarshalJSON renders the variant-specific wire shape: SELECT results carry
// rows and a row count, MODIFY results carry the affected-row count.
func (r *StatementResult) MarshalJSON() ([]byte, error) {
	if r.Kind == KindSelect {
		rows := r.Rows
		if rows == nil {
			rows = []map[string]any{}
		}
		return json.Marshal(struct {
			Position int              `json:"statement_index"`
			SQL      string           `json:"sql"`
			Kind     ResultKind       `json:"type"`
			Rows     []map[string]any `json:"results"`
			RowCount int              `json:"row_count"`
		}{r.Position, r.SQL, r.Kind, rows, r.RowCount})
	}
	return json.Marshal(struct {
		Position     int        `json:"statement_index"`
		SQL          string     `json:"sql"`
		Kind         ResultKind `json:"type"`
		AffectedRows int64      `json:"affected_rows"`
		Success      bool       `json:"success"`
	}{r.Position, r.SQL, r.Kind, r.AffectedRows, true})
}

// Outcome aggregates the per-statement results of one execution, tagged
// with the template that produced it and the execution ID it ran under.
type Outcome struct {
	TemplateName string             `json:"-"`
	ExecutionID  string             `json:"-"`
	Results      []*StatementResult `json:"results"`
}

// RowsReturned sums the row counts of all SELECT results.
func (o *Outcome) RowsReturned() int {
	total := 0
	for _, r := range o.Results {
		if r.Kind == KindSelect {
			total += r.RowCount
		}
	}
	return total
}

// RowsAffected sums the affected-row counts of all MODIFY results.
func (o *Outcome) RowsAffected() int64 {
	var total int64
	for _, r := range o.Results {
		if r.Kind == KindModify {
			total += r.AffectedRows
		}
	}
	return total
}
