// Package merrors collects errors from steps that keep going after a failure,
// like parsing every config file of every project.
package merrors

import (
	"fmt"
	"strings"
)

// Error type implements the error interface, and contains the
// Errors used to construct it.
type Error []error

func New() *Error { return &Error{} }

// Error returns the contained errors, one per line after a count.
func (es Error) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(es))
	for _, err := range es {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Add adds the error to the error list if it is not nil. Nested lists are flattened.
func (es *Error) Add(err error) {
	if err == nil {
		return
	}
	switch merr := err.(type) {
	case Error:
		*es = append(*es, merr...)
	case *Error:
		*es = append(*es, (*merr)...)
	default:
		*es = append(*es, err)
	}
}

// Len returns the number of collected errors.
func (es Error) Len() int { return len(es) }

// Err returns the error list as an error or nil if it is empty.
func (es Error) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}
