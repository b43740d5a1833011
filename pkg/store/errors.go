package store

import "fmt"

// DataLoadError signals a missing or malformed backing table. Fatal to the
// run; callers are expected to abort and surface it to the operator.
type DataLoadError struct {
	Table string
	Err   error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("cannot load table %s: %v", e.Table, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
