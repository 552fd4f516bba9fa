package inspect

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns the changed lines between two renderings, colored for a terminal, or "" when they
// are the same.
func Diff(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	changed := make([]diffmatchpatch.Diff, 0, len(diffs))
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			changed = append(changed, d)
		}
	}
	return dmp.DiffPrettyText(changed)
}
