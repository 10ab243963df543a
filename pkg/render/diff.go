package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"
)

// Diff writes a unified diff between two rendered edge lists. Every line is
// kept as context, so the output shows the full dependency list.
func Diff(w io.Writer, baseName, newName, base, new string) error {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(base, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var (
		body            bytes.Buffer
		origLen, newLen int32
		changed         bool
	)
	for _, d := range diffs {
		var prefix byte
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			prefix = ' '
		case diffmatchpatch.DiffDelete:
			prefix, changed = '-', true
		case diffmatchpatch.DiffInsert:
			prefix, changed = '+', true
		}
		for _, line := range splitLines(d.Text) {
			body.WriteByte(prefix)
			body.WriteString(line)
			body.WriteByte('\n')
			if prefix != '+' {
				origLen++
			}
			if prefix != '-' {
				newLen++
			}
		}
	}

	if !changed {
		_, err := fmt.Fprintf(w, "No dependency changes between %s and %s.\n", baseName, newName)
		return err
	}

	hunk := &diff.Hunk{OrigLines: origLen, NewLines: newLen, Body: body.Bytes()}
	if origLen > 0 {
		hunk.OrigStartLine = 1
	}
	if newLen > 0 {
		hunk.NewStartLine = 1
	}
	out, err := diff.PrintFileDiff(&diff.FileDiff{
		OrigName: baseName,
		NewName:  newName,
		Hunks:    []*diff.Hunk{hunk},
	})
	if err != nil {
		return errors.Wrap(err, "print diff")
	}
	_, err = w.Write(out)
	return err
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
