package conflict

import (
	"strings"

	"github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// hunks returns the regions of base that side replaced, using go-git's line diff
func hunks(side Side, base, changed string) []Hunk {
	var out []Hunk
	var cur *Hunk
	pos := 0

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	open := func() {
		if cur == nil {
			cur = &Hunk{Side: side, Start: pos}
		}
	}

	for _, d := range diff.Do(base, changed) {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			pos += n
		case diffmatchpatch.DiffDelete:
			open()
			cur.Count += n
			pos += n
		case diffmatchpatch.DiffInsert:
			open()
			cur.Added += n
			cur.text += d.Text
		}
	}
	flush()
	return out
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// collide reports whether two hunks from different sides would conflict.
// Overlapping ranges conflict, and so do adjacent ones or two insertions at
// the same line, unless both sides made the same change.
func collide(a, b Hunk) bool {
	if a.Start == b.Start && a.Count == b.Count && a.text == b.text {
		return false
	}
	switch {
	case a.Start < b.End() && b.Start < a.End():
		return true
	case a.Start == b.Start:
		return true
	case a.End() == b.Start || b.End() == a.Start:
		return true
	}
	return false
}

// overlapping returns the hunks of both sides that take part in a collision
func overlapping(ours, theirs []Hunk) []Hunk {
	hit := map[int]bool{}
	var out []Hunk
	for i, a := range ours {
		for j, b := range theirs {
			if !collide(a, b) {
				continue
			}
			if !hit[i] {
				hit[i] = true
				out = append(out, a)
			}
			if !hit[len(ours)+j] {
				hit[len(ours)+j] = true
				out = append(out, b)
			}
		}
	}
	return out
}
