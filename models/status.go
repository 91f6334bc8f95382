package models

// Status is the per-semester standing of a student. It is assigned only by
// the classifier; nothing else mutates it.
type Status string

const (
	StatusPass      Status = "Pass"
	StatusCarryover Status = "Carry Over"
	StatusProbation Status = "Probation"
	StatusWithdrawn Status = "Withdrawn"
)

// SortPriority orders statuses for mastersheet presentation: passed students
// first, withdrawn last.
func (s Status) SortPriority() int {
	switch s {
	case StatusPass:
		return 0
	case StatusCarryover:
		return 1
	case StatusProbation:
		return 2
	case StatusWithdrawn:
		return 3
	default:
		return 4
	}
}
