package schema

import (
	"fmt"
	"strconv"
)

// SchemaError is returned when a variable share document is malformed: a
// required field is missing, a value has the wrong type or a tagged value names
// an unknown variant. Path points at the offending field, e.g.
// "tasks[2].source.url".
type SchemaError struct {
	Path string
	Msg  string
	Err  error
}

func (e *SchemaError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", path, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", path, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func schemaErrorf(path, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

func fieldPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func keyPath(parent, key string) string {
	return parent + "[" + strconv.Quote(key) + "]"
}
