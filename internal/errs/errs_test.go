package errs

import (
	"errors"
	"testing"
)

func TestErrorTypesImplementCoded(t *testing.T) {
	cases := []struct {
		name string
		err  Coded
		code Code
	}{
		{"UserInputError", &UserInputError{Field: "type", Message: "unknown kind"}, CodeUserInput},
		{"IndexNotFoundError", &IndexNotFoundError{Root: "/repo"}, CodeIndexMissing},
		{"CorruptIndexError", &CorruptIndexError{Root: "/repo", Err: errors.New("bad segment")}, CodeCorruptIndex},
		{"ScopeOutsideRootError", &ScopeOutsideRootError{Root: "/repo", Scope: "/etc"}, CodeScopeInvalid},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.Code() != c.code {
				t.Errorf("Code() = %q, want %q", c.err.Code(), c.code)
			}
			if c.err.Error() == "" {
				t.Errorf("Error() returned an empty message")
			}
		})
	}
}

func TestCorruptIndexErrorUnwraps(t *testing.T) {
	cause := errors.New("segment checksum mismatch")
	err := &CorruptIndexError{Root: "/repo", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is did not find the wrapped cause")
	}
}

func TestTypeSwitchRecoversSpecificFields(t *testing.T) {
	var err error = &UserInputError{Field: "limit", Message: "must be positive"}
	uie, ok := err.(*UserInputError)
	if !ok {
		t.Fatalf("type assertion to *UserInputError failed")
	}
	if uie.Field != "limit" {
		t.Errorf("Field = %q, want %q", uie.Field, "limit")
	}
}
