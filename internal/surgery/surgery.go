// Package surgery implements line- and anchor-addressed text edits.
// Every operation resolves a 1-based inclusive line range first, applies
// exactly one change, and writes the whole file back. A refused
// operation leaves the file byte-for-byte unchanged because nothing is
// written until the edit has fully resolved.
package surgery

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"reposcope/internal/errors"
)

// Occurrence selects one match among several anchor hits.
type Occurrence string

const (
	First Occurrence = "first"
	Last  Occurrence = "last"
	Nth   Occurrence = "nth"
)

// Anchor locates a line by content instead of number. Offset shifts the
// resolved line; Length extends an anchor-derived range downward
// (0 means unset).
type Anchor struct {
	Text       string
	IsRegex    bool
	Occurrence Occurrence
	Nth        int
	Offset     int
	Length     int
}

// Target addresses lines either by explicit range or by anchor.
// Exactly one of the two must be set.
type Target struct {
	Start  int // 1-based, 0 = unset
	End    int // inclusive; defaults to Start
	Anchor *Anchor
}

// Side places an insertion relative to the resolved line.
type Side string

const (
	Before Side = "before"
	After  Side = "after"
)

// Result reports what an operation did.
type Result struct {
	AppliedStart      int    `json:"appliedStart,omitempty"`
	AppliedEnd        int    `json:"appliedEnd,omitempty"`
	InsertionPoint    int    `json:"insertionPoint,omitempty"`
	MatchedAnchorLine int    `json:"matchedAnchorLine,omitempty"`
	MarkID            string `json:"markId,omitempty"`
	Note              string `json:"note,omitempty"`
}

// Insert places payload immediately before or after the single resolved
// line, touching no other lines.
func Insert(path string, target Target, payload string, side Side) (*Result, error) {
	doc, err := readDoc(path)
	if err != nil {
		return nil, err
	}
	line, anchorLine, err := resolveLine(doc.lines, target)
	if err != nil {
		return nil, err
	}
	if side != Before && side != After {
		return nil, errors.NewInvalidParameterError("where", "must be 'before' or 'after'")
	}

	at := line // index of the slot the payload goes into (1-based)
	if side == After {
		at = line + 1
	}
	payloadLines := splitPayload(payload)
	out := make([]string, 0, len(doc.lines)+len(payloadLines))
	out = append(out, doc.lines[:at-1]...)
	out = append(out, payloadLines...)
	out = append(out, doc.lines[at-1:]...)

	if err := doc.write(path, out); err != nil {
		return nil, err
	}
	return &Result{
		InsertionPoint:    at,
		MatchedAnchorLine: anchorLine,
	}, nil
}

// Update replaces the inclusive target range with the payload. An
// anchor-derived range with a multi-line payload and no explicit Length
// is refused as ambiguous rather than guessed at.
func Update(path string, target Target, payload string) (*Result, error) {
	doc, err := readDoc(path)
	if err != nil {
		return nil, err
	}
	start, end, anchorLine, err := resolveRange(doc.lines, target)
	if err != nil {
		return nil, err
	}

	payloadLines := splitPayload(payload)
	if target.Anchor != nil && target.Anchor.Length == 0 && len(payloadLines) > 1 {
		return nil, errors.New(errors.AmbiguousRange,
			"multi-line payload with an anchor target requires an explicit length")
	}

	out := make([]string, 0, len(doc.lines)-(end-start+1)+len(payloadLines))
	out = append(out, doc.lines[:start-1]...)
	out = append(out, payloadLines...)
	out = append(out, doc.lines[end:]...)

	if err := doc.write(path, out); err != nil {
		return nil, err
	}
	return &Result{
		AppliedStart:      start,
		AppliedEnd:        end,
		MatchedAnchorLine: anchorLine,
	}, nil
}

// Delete removes the inclusive target range. With markOnly the range is
// kept and wrapped in paired sentinel comments carrying one fresh
// identifier, for later review.
func Delete(path string, target Target, markOnly bool) (*Result, error) {
	doc, err := readDoc(path)
	if err != nil {
		return nil, err
	}
	start, end, anchorLine, err := resolveRange(doc.lines, target)
	if err != nil {
		return nil, err
	}

	var out []string
	result := &Result{
		AppliedStart:      start,
		AppliedEnd:        end,
		MatchedAnchorLine: anchorLine,
	}
	if markOnly {
		id := uuid.NewString()
		out = make([]string, 0, len(doc.lines)+2)
		out = append(out, doc.lines[:start-1]...)
		out = append(out, fmt.Sprintf("// reposcope:delete:%s begin", id))
		out = append(out, doc.lines[start-1:end]...)
		out = append(out, fmt.Sprintf("// reposcope:delete:%s end", id))
		out = append(out, doc.lines[end:]...)
		result.MarkID = id
		result.Note = "range marked, not removed"
	} else {
		out = make([]string, 0, len(doc.lines)-(end-start+1))
		out = append(out, doc.lines[:start-1]...)
		out = append(out, doc.lines[end:]...)
	}

	if err := doc.write(path, out); err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceInLine performs find/replace within the single resolved line
// only, for one-token changes that must not disturb neighbors.
func ReplaceInLine(path string, target Target, find, replace string, isRegex bool) (*Result, error) {
	if find == "" {
		return nil, errors.NewInvalidParameterError("find", "must not be empty")
	}
	doc, err := readDoc(path)
	if err != nil {
		return nil, err
	}
	line, anchorLine, err := resolveLine(doc.lines, target)
	if err != nil {
		return nil, err
	}

	old := doc.lines[line-1]
	var replaced string
	if isRegex {
		re, err := regexp.Compile(find)
		if err != nil {
			return nil, errors.Wrap(errors.RegexError, "invalid find pattern", err)
		}
		if !re.MatchString(old) {
			return nil, errors.New(errors.AnchorNotFound, "find pattern not present in the resolved line")
		}
		replaced = re.ReplaceAllString(old, replace)
	} else {
		if !strings.Contains(old, find) {
			return nil, errors.New(errors.AnchorNotFound, "find text not present in the resolved line")
		}
		replaced = strings.ReplaceAll(old, find, replace)
	}

	out := make([]string, len(doc.lines))
	copy(out, doc.lines)
	out[line-1] = replaced

	if err := doc.write(path, out); err != nil {
		return nil, err
	}
	return &Result{
		AppliedStart:      line,
		AppliedEnd:        line,
		MatchedAnchorLine: anchorLine,
	}, nil
}

// resolveLine resolves a target that must address exactly one line.
// Returns the line and, when an anchor was used, the matched anchor line
// before offset.
func resolveLine(lines []string, target Target) (line, anchorLine int, err error) {
	if target.Anchor != nil {
		anchorLine, err = findAnchor(lines, target.Anchor)
		if err != nil {
			return 0, 0, err
		}
		line = anchorLine + target.Anchor.Offset
	} else {
		if target.Start <= 0 {
			return 0, 0, errors.NewInvalidParameterError("line", "a line number or an anchor is required")
		}
		line = target.Start
	}
	if line < 1 || line > len(lines) {
		return 0, 0, errors.New(errors.InvalidRange,
			fmt.Sprintf("line %d outside file of %d lines", line, len(lines)))
	}
	return line, anchorLine, nil
}

// resolveRange resolves an inclusive range from an explicit pair or an
// anchor plus optional length.
func resolveRange(lines []string, target Target) (start, end, anchorLine int, err error) {
	if target.Anchor != nil {
		anchorLine, err = findAnchor(lines, target.Anchor)
		if err != nil {
			return 0, 0, 0, err
		}
		start = anchorLine + target.Anchor.Offset
		length := target.Anchor.Length
		if length <= 0 {
			length = 1
		}
		end = start + length - 1
	} else {
		start = target.Start
		end = target.End
		if end == 0 {
			end = start
		}
	}
	if start < 1 || end < start || end > len(lines) {
		return 0, 0, 0, errors.New(errors.InvalidRange,
			fmt.Sprintf("range %d-%d outside file of %d lines", start, end, len(lines)))
	}
	return start, end, anchorLine, nil
}

// findAnchor scans top-to-bottom, collects every matching line, then
// selects one via the occurrence selector.
func findAnchor(lines []string, a *Anchor) (int, error) {
	if a.Text == "" {
		return 0, errors.NewInvalidParameterError("anchor", "must not be empty")
	}

	var matcher func(string) bool
	if a.IsRegex {
		re, err := regexp.Compile(a.Text)
		if err != nil {
			return 0, errors.Wrap(errors.RegexError, "invalid anchor pattern", err)
		}
		matcher = re.MatchString
	} else {
		matcher = func(s string) bool { return strings.Contains(s, a.Text) }
	}

	var hits []int
	for i, line := range lines {
		if matcher(line) {
			hits = append(hits, i+1)
		}
	}
	if len(hits) == 0 {
		return 0, errors.New(errors.AnchorNotFound, "anchor matched no line").
			WithDetails(map[string]string{"anchor": a.Text})
	}

	switch a.Occurrence {
	case "", First:
		return hits[0], nil
	case Last:
		return hits[len(hits)-1], nil
	case Nth:
		if a.Nth < 1 || a.Nth > len(hits) {
			return 0, errors.New(errors.OccurrenceOutOfRange,
				fmt.Sprintf("occurrence %d of %d matches", a.Nth, len(hits))).
				WithDetails(map[string]int{"nth": a.Nth, "matches": len(hits)})
		}
		return hits[a.Nth-1], nil
	default:
		return 0, errors.NewInvalidParameterError("occurrence", "must be first, last, or nth")
	}
}

// document holds one file's lines plus enough shape to write it back
// unchanged where untouched.
type document struct {
	lines           []string
	trailingNewline bool
}

func readDoc(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.FileNotFound, "file does not exist", err)
		}
		return nil, errors.Wrap(errors.InternalError, "cannot read file", err)
	}
	text := string(data)
	trailing := strings.HasSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" || trailing {
		lines = strings.Split(text, "\n")
	}
	return &document{lines: lines, trailingNewline: trailing}, nil
}

func (d *document) write(path string, lines []string) error {
	text := strings.Join(lines, "\n")
	if d.trailingNewline && text != "" {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return errors.Wrap(errors.InternalError, "cannot write file", err)
	}
	return nil
}

// splitPayload turns a payload into lines without inventing a trailing
// empty line for a payload that ends in a newline.
func splitPayload(payload string) []string {
	payload = strings.TrimSuffix(payload, "\n")
	if payload == "" {
		return []string{""}
	}
	return strings.Split(payload, "\n")
}
