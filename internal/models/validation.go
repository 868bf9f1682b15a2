package models

// ValidationIssue is one problem a validator found in enriched data
type ValidationIssue struct {
	Field      string
	Severity   Severity
	Message    string
	Suggestion string
}

// ValidationReport is the outcome of the validation pipeline. Valid
// means no error-severity issue; the quality score is computed from
// completeness heuristics independently of validity.
type ValidationReport struct {
	Valid        bool
	QualityScore int // 0-100
	Issues       []ValidationIssue
}

// ErrorCount returns how many issues carry error severity
func (r *ValidationReport) ErrorCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}
