package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cgrep/internal/errs"
	"cgrep/internal/render"
)

var (
	readSection string
	readFull    bool

	mapPath  string
	mapDepth int
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Render a file's content, or an outline if it is too large",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("read")
		result, err := runRead(rc.root, args[0], readSection, readFull)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		os.Exit(rc.emitResult(result, func() { printReadResult(result) }))
		return nil
	},
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print a structural, bounded-depth map of the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc := newRunCtx("map")
		entry, truncated, err := runMap(rc.root, mapPath, mapDepth)
		if err != nil {
			os.Exit(rc.emitError(err))
		}
		if truncated {
			os.Exit(func() int {
				e := rc.emitResult(entry, func() { printMapEntry(entry, 0) })
				fmt.Fprintln(os.Stderr, "warning: map output truncated by --depth/entry budget")
				return e
			}())
		}
		os.Exit(rc.emitResult(entry, func() { printMapEntry(entry, 0) }))
		return nil
	},
}

func init() {
	readCmd.Flags().StringVar(&readSection, "section", "", "a `start-end` line range or a #markdown-heading")
	readCmd.Flags().BoolVar(&readFull, "full", false, "force a full read even above the size ceiling")

	mapCmd.Flags().StringVarP(&mapPath, "path", "p", "", "subdirectory to map (default: root)")
	mapCmd.Flags().IntVar(&mapDepth, "depth", 6, "maximum recursion depth")
}

func runRead(root, relPath, section string, full bool) (render.ReadResult, error) {
	scope, err := requireScope(root, relPath)
	if err != nil {
		return render.ReadResult{}, err
	}
	_ = scope

	abs := resolvePath(root, relPath)
	info, statErr := os.Stat(abs)
	if statErr != nil {
		return render.ReadResult{}, &errs.UserInputError{Field: "path", Message: statErr.Error()}
	}
	if info.IsDir() {
		entry, _, err := render.Map(abs, render.DefaultMapOptions())
		if err != nil {
			return render.ReadResult{}, err
		}
		names := make([]string, 0, len(entry.Children))
		for _, c := range entry.Children {
			names = append(names, c.Name)
		}
		return render.ReadResult{Path: relPath, Mode: render.ModeDirectory, Lines: names}, nil
	}

	if section == "" {
		if full {
			return readFullOverride(abs)
		}
		return render.Read(abs, 0, 0)
	}

	start, end, err := parseSection(abs, section)
	if err != nil {
		return render.ReadResult{}, &errs.UserInputError{Field: "section", Message: err.Error()}
	}
	return render.Read(abs, start, end)
}

// readFullOverride forces a full-file read regardless of render.MaxFullLines
// by reading the whole file as one oversized "section" (spec §6.2 "--full").
func readFullOverride(abs string) (render.ReadResult, error) {
	rr, err := render.Read(abs, 1, 1<<30)
	if err != nil {
		return rr, err
	}
	rr.Mode = render.ModeFull
	return rr, nil
}

// parseSection resolves --section, either a `#heading` lookup against the
// file's markdown outline, or a literal `start-end` integer range
// (spec §4.7 "Read modes").
func parseSection(abs, section string) (int, int, error) {
	if strings.HasPrefix(section, "#") {
		data, err := os.ReadFile(abs)
		if err != nil {
			return 0, 0, err
		}
		for _, o := range render.Outline(abs, data) {
			if strings.EqualFold(o.Name, strings.TrimPrefix(section, "#")) {
				end := o.EndLine
				if end == 0 {
					end = o.Line
				}
				return o.Line, end, nil
			}
		}
		return 0, 0, fmt.Errorf("no heading matches %q", section)
	}

	parts := strings.SplitN(section, "-", 2)
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid section %q", section)
	}
	end := start
	if len(parts) == 2 {
		end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid section %q", section)
		}
	}
	return start, end, nil
}

func runMap(root, pathFlag string, depth int) (render.DirEntry, bool, error) {
	scope, err := requireScope(root, pathFlag)
	if err != nil {
		return render.DirEntry{}, false, err
	}
	target := root
	if len(scope.Prefixes) > 0 {
		target = resolvePath(root, scope.Prefixes[0])
	}
	return render.Map(target, render.MapOptions{MaxDepth: depth, MaxEntries: render.DefaultMapOptions().MaxEntries})
}

func printReadResult(r render.ReadResult) {
	switch r.Mode {
	case render.ModeOutline:
		for _, o := range r.Outline {
			fmt.Printf("[%d-%d] %s %s\n", o.Line, o.EndLine, o.Kind, o.Name)
		}
	case render.ModeDirectory:
		for _, l := range r.Lines {
			fmt.Println(l)
		}
	case render.ModeBinary, render.ModeEmpty, render.ModeGenerated:
		fmt.Println(r.Mode)
	default:
		for i, l := range r.Lines {
			fmt.Printf("%d\t%s\n", r.StartLine+i, l)
		}
	}
}

func printMapEntry(e render.DirEntry, depth int) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), e.Name)
	for _, c := range e.Children {
		printMapEntry(c, depth+1)
	}
}
