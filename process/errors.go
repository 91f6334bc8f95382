package process

import "fmt"

// MissingColumnError marks a component sheet that lacks a required column.
// The sheet is skipped and the intake continues with the remaining sheets.
type MissingColumnError struct {
	Sheet  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("sheet %q has no %s column", e.Sheet, e.Column)
}

// SourceNotFoundError is returned when neither a result ZIP nor a result
// folder exists for the requested set.
type SourceNotFoundError struct {
	Set string
	Dir string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("no result folder or ZIP for set %q under %s", e.Set, e.Dir)
}
