// Command mxc is the command-line front end for the translator (spec.md
// §6/§8's invocation contract). Grounded on the teacher's cmd/msg/main.go:
// the same os.Args[1]-as-subcommand dispatch, the same red/green/blue ANSI
// helpers for diagnostics, and cmdRepl's prompt-plus-continuation-probe
// loop reused here for the "watch" development-preview subcommand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	mxc "github.com/daios-ai/mxc"
)

const (
	appName     = "mxc"
	historyFile = ".mxc_history"
	promptMain  = "mx> "
	promptCont  = "... "
)

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "translate":
		os.Exit(cmdTranslate(os.Args[2:]))
	case "watch":
		os.Exit(cmdWatch(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`mxc — source-to-C++17 matrix-script translator

Usage:
  %s translate [flags] <in.m> <out.cpp> <embed.cpp> <entry-name>
                                           Translate a source file.
  %s watch                                Interactive translate-and-preview loop.
  %s help                                 Show this message.

translate flags:
  -mathematical-notation   require exact shape match for +/- (no broadcast)
  -disallow-resizing       reject reassignment that changes a variable's shape
  -write-to-workspace      re-export base-scope variables after running (embed variant)
`, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// translate
// -----------------------------------------------------------------------------

func cmdTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	mathNotation := fs.Bool("mathematical-notation", false, "require exact shape match for +/- (no broadcast)")
	disallowResize := fs.Bool("disallow-resizing", false, "reject reassignment that changes a variable's shape")
	writeWorkspace := fs.Bool("write-to-workspace", false, "re-export base-scope variables after running (embed variant)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pos := fs.Args()
	if len(pos) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s translate [flags] <in.m> <out.cpp> <embed.cpp> <entry-name>\n", appName)
		return 2
	}
	inPath, outPath, embedPath, entryName := pos[0], pos[1], pos[2], pos[3]

	src, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, inPath, err)
		return 1
	}

	opts := mxc.Options{
		MathematicalNotation: *mathNotation,
		DisallowResizing:     *disallowResize,
		WriteToWorkspace:     *writeWorkspace,
	}

	res, err := mxc.Translate(string(src), opts, entryName)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(mxc.Diagnose(err, string(src))))
		return 1
	}

	if err := mxc.WriteOutputs(res, outPath, embedPath); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}

	fmt.Println(green(fmt.Sprintf("wrote %s and %s", outPath, embedPath)))
	return 0
}

// -----------------------------------------------------------------------------
// watch
// -----------------------------------------------------------------------------

func cmdWatch(_ []string) int {
	fmt.Println("mxc watch — type a script, each complete statement or block translates as you go.")
	fmt.Println("Ctrl+C cancels input, Ctrl+D exits.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}
		if strings.TrimSpace(code) == "" {
			continue
		}

		res, err := mxc.Translate(code, mxc.Options{}, "mx_entry")
		if err != nil {
			fmt.Fprintln(os.Stderr, red(mxc.Diagnose(err, code)))
			continue
		}
		fmt.Println(blue(res.StandaloneSource))
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
	return 0
}

// readByParseProbe accumulates lines until the buffered source parses
// cleanly or the user ends input, the same continuation-probe shape as
// the teacher's cmdRepl helper of the same name: attempt-then-check-
// completeness rather than a hand-rolled bracket counter.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.TrimSpace(src) == "" {
			return src, true
		}
		_, perr := mxc.Parse(src)
		if perr == nil {
			return src, true
		}
		if isIncompleteParse(perr) {
			continue
		}
		return src, true
	}
}

// isIncompleteParse reports whether perr looks like it was caused by the
// buffered source ending mid-construct (an unclosed block/bracket) rather
// than a genuine grammar error, so the watch loop knows to keep prompting
// for continuation lines instead of reporting failure immediately.
func isIncompleteParse(perr error) bool {
	var le *mxc.LexError
	if errors.As(perr, &le) {
		// An unclosed block leaves the function/end balance off.
		return strings.Contains(le.Msg, "inconsistent use of")
	}
	var pe *mxc.ParseError
	if !errors.As(perr, &pe) {
		return false
	}
	msg := pe.Msg
	return strings.Contains(msg, "expected") && (strings.Contains(msg, "'end'") || strings.Contains(msg, "unexpected token"))
}
