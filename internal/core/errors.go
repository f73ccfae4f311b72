package core

import "fmt"

// MalformedInputError reports the first offending row or column of an
// uploaded event log. Row is the 1-based data row index; 0 means the
// header itself was rejected.
type MalformedInputError struct {
	Row    int
	Column string
	Reason string
}

func (e *MalformedInputError) Error() string {
	switch {
	case e.Row == 0:
		return fmt.Sprintf("malformed input: column %q: %s", e.Column, e.Reason)
	case e.Column == "":
		return fmt.Sprintf("malformed input: row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("malformed input: row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// InsufficientDataError signals that the dataset cannot support a
// stratified split — a class has fewer than 2 examples, or the file is
// empty. No partial report is produced.
type InsufficientDataError struct {
	Class string
	Count int
}

func (e *InsufficientDataError) Error() string {
	if e.Class == "" {
		return "cannot train: insufficient data (empty dataset)"
	}
	return fmt.Sprintf("cannot train: insufficient data (%d %s example(s), need at least 2)", e.Count, e.Class)
}
