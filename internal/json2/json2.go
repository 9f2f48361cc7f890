// Package json2 implements the deterministic JSON2 envelope (spec §7):
// every machine-facing command response is wrapped in {meta, result |
// results | steps, error?} with stable field ordering, sorted arrays
// where the spec calls for them, and reproducible float formatting so
// two runs over identical inputs byte-diff clean.
package json2

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Meta is the envelope's fixed metadata block (spec §7.1).
type Meta struct {
	Command       string `json:"command"`
	SchemaVersion string `json:"schema_version"`
	Root          string `json:"root,omitempty"`
	DurationMS    int64  `json:"duration_ms,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
}

// ErrorBody is the envelope's error payload (spec §7.1).
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Envelope is the top-level JSON2 document. Exactly one of Result,
// Results, or Steps is populated on success; Error is populated instead
// on failure (spec §7.1 "exactly one of").
type Envelope struct {
	Meta    Meta        `json:"meta"`
	Result  interface{} `json:"result,omitempty"`
	Results interface{} `json:"results,omitempty"`
	Steps   interface{} `json:"steps,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// SchemaVersion is the current JSON2 envelope schema version.
const SchemaVersion = "1"

// NewResult builds a success envelope carrying a single result object.
func NewResult(command, root string, durationMS int64, result interface{}) Envelope {
	return Envelope{Meta: Meta{Command: command, SchemaVersion: SchemaVersion, Root: root, DurationMS: durationMS}, Result: result}
}

// NewResults builds a success envelope carrying a result list.
func NewResults(command, root string, durationMS int64, results interface{}) Envelope {
	return Envelope{Meta: Meta{Command: command, SchemaVersion: SchemaVersion, Root: root, DurationMS: durationMS}, Results: results}
}

// NewSteps builds a success envelope carrying an ordered step list
// (spec §7.1, used by "agent expand").
func NewSteps(command, root string, durationMS int64, steps interface{}) Envelope {
	return Envelope{Meta: Meta{Command: command, SchemaVersion: SchemaVersion, Root: root, DurationMS: durationMS}, Steps: steps}
}

// NewError builds a failure envelope.
func NewError(command string, code string, err error, field string) Envelope {
	return Envelope{
		Meta:  Meta{Command: command, SchemaVersion: SchemaVersion},
		Error: &ErrorBody{Code: code, Message: err.Error(), Field: field},
	}
}

// MarkTruncated flips meta.truncated, used whenever a result list was
// clipped to a budget (spec §7.1 "Truncation signaling").
func (e Envelope) MarkTruncated() Envelope {
	e.Meta.Truncated = true
	return e
}

// Encode renders env deterministically: compact mode strips all
// insignificant whitespace, pretty mode uses a stable two-space indent.
// Both modes rely on encoding/json's built-in lexicographic map-key
// ordering, so the only extra determinism needed by spec §7.2 is on the
// caller's side — sort slices before handing them to Encode.
func Encode(env Envelope, compact bool) ([]byte, error) {
	if compact {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(env); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatFloat renders a score/weight with the stable precision spec
// §7.2 requires ("never more than 4 significant fractional digits, no
// trailing zeros beyond that, no scientific notation").
func FormatFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s += "0"
	}
	return s
}

// SortStrings sorts a copy of ss, never mutating the caller's slice —
// used before handing any path/name list to an envelope so repeated
// runs over an unordered map produce byte-identical JSON (spec §7.2
// "Deterministic ordering").
func SortStrings(ss []string) []string {
	out := append([]string{}, ss...)
	sort.Strings(out)
	return out
}
