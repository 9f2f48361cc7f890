// Output helpers shared by every subcommand: JSON2 envelope construction,
// text-mode rendering, and the error-to-JSON2-code mapping (spec §4.9, §7).
package main

import (
	"fmt"
	"os"
	"time"

	"cgrep/internal/errs"
	"cgrep/internal/json2"
)

// runCtx carries the per-invocation state every command needs to build its
// envelope: the resolved root, the requested output format, and a start
// time for duration_ms.
type runCtx struct {
	command string
	root    string
	format  string
	compact bool
	start   time.Time
}

func newRunCtx(command string) *runCtx {
	return &runCtx{command: command, root: resolveRoot(), format: outputFormat, compact: compactOutput, start: time.Now()}
}

func (c *runCtx) durationMS() int64 { return time.Since(c.start).Milliseconds() }

// emitResult prints a single-result envelope (or its text rendering) and
// returns a process exit code.
func (c *runCtx) emitResult(result interface{}, textRender func()) int {
	if c.format == "text" {
		if textRender != nil {
			textRender()
		}
		return 0
	}
	env := json2.NewResult(c.command, c.root, c.durationMS(), result)
	return c.write(env)
}

// emitResults prints a results-list envelope (or its text rendering).
func (c *runCtx) emitResults(results interface{}, textRender func()) int {
	if c.format == "text" {
		if textRender != nil {
			textRender()
		}
		return 0
	}
	env := json2.NewResults(c.command, c.root, c.durationMS(), results)
	return c.write(env)
}

// emitSteps prints a steps-list envelope (agent expand), or its text
// rendering.
func (c *runCtx) emitSteps(steps interface{}, textRender func()) int {
	if c.format == "text" {
		if textRender != nil {
			textRender()
		}
		return 0
	}
	env := json2.NewSteps(c.command, c.root, c.durationMS(), steps)
	return c.write(env)
}

// emitError prints a failure envelope (or a plain stderr message in text
// mode) and returns a nonzero exit code.
func (c *runCtx) emitError(err error) int {
	code := string(errs.CodeIOFailure)
	field := ""
	if coded, ok := err.(errs.Coded); ok {
		code = string(coded.Code())
	}
	if uie, ok := err.(*errs.UserInputError); ok {
		field = uie.Field
	}

	if c.format == "text" {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCodeFor(code)
	}
	env := json2.NewError(c.command, code, err, field)
	c.write(env)
	return exitCodeFor(code)
}

// exitCodeFor maps a JSON2 error code to a process exit code: user-caused
// failures (bad input, missing/corrupt index, invalid scope) exit 1, while
// anything else is treated as an unexpected I/O failure and exits 2.
func exitCodeFor(code string) int {
	switch code {
	case string(errs.CodeUserInput), string(errs.CodeIndexMissing), string(errs.CodeScopeInvalid), string(errs.CodeCorruptIndex):
		return 1
	default:
		return 2
	}
}

func (c *runCtx) write(env json2.Envelope) int {
	data, err := json2.Encode(env, c.compact)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: encode response: %v\n", err)
		return 2
	}
	fmt.Println(string(data))
	return 0
}
