package json2

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDeterministicOrdering(t *testing.T) {
	env := NewResults("search", "/repo", 12, []map[string]string{{"path": "b.go"}, {"path": "a.go"}})
	a, err := Encode(env, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(env, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !cmp.Equal(a, b) {
		t.Fatalf("Encode is not deterministic across repeated calls")
	}
}

func TestEncodeCompactHasNoIndentation(t *testing.T) {
	env := NewResult("status", "/repo", 0, map[string]string{"phase": "done"})
	data, err := Encode(env, true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, b := range data {
		if b == '\n' {
			t.Fatalf("compact output contains a newline: %q", data)
		}
	}
}

func TestEnvelopeExactlyOneVariant(t *testing.T) {
	env := NewResult("read", "/repo", 1, "x")
	var decoded map[string]interface{}
	data, _ := Encode(env, true)
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	present := 0
	for _, key := range []string{"result", "results", "steps"} {
		if _, ok := decoded[key]; ok {
			present++
		}
	}
	if present != 1 {
		t.Fatalf("expected exactly one of result/results/steps, got %d", present)
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("success envelope should not carry an error field")
	}
}

func TestNewErrorPopulatesErrorBody(t *testing.T) {
	env := NewError("symbols", "user_input", errors.New("bad type"), "type")
	if env.Result != nil || env.Results != nil || env.Steps != nil {
		t.Fatalf("error envelope must not carry result/results/steps")
	}
	if env.Error == nil || env.Error.Code != "user_input" || env.Error.Field != "type" {
		t.Fatalf("unexpected error body: %+v", env.Error)
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		1:        "1.0",
		1.5:      "1.5",
		1.23456:  "1.2346",
		0:        "0.0",
		0.1:      "0.1",
		1.20000:  "1.2",
	}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSortStringsDoesNotMutateInput(t *testing.T) {
	in := []string{"c", "a", "b"}
	out := SortStrings(in)
	if !cmp.Equal(out, []string{"a", "b", "c"}) {
		t.Fatalf("SortStrings result = %v", out)
	}
	if !cmp.Equal(in, []string{"c", "a", "b"}) {
		t.Fatalf("SortStrings mutated its input: %v", in)
	}
}

func TestMarkTruncated(t *testing.T) {
	env := NewResults("search", "/repo", 5, []int{1, 2})
	env = env.MarkTruncated()
	if !env.Meta.Truncated {
		t.Fatalf("MarkTruncated did not set Meta.Truncated")
	}
}
