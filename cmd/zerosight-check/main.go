// Command zerosight-check scores URLs from the command line or stdin.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/zerosight/zerosight-go/internal/classify"
)

const (
	exitOK    = 0
	exitError = 1
	exitHigh  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zerosight-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "Print one JSON result per line")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	rulesFile := fs.String("rules", "", "Path to a YAML rules file overriding the built-in tables")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: zerosight-check [-json] [-no-color] [-rules file] [url ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	rules := classify.DefaultRules()
	if *rulesFile != "" {
		var err error
		if rules, err = classify.LoadRulesFile(*rulesFile); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
	}
	engine := classify.NewEngine(rules)

	urls := fs.Args()
	if len(urls) == 0 {
		if stdin == nil || term.IsTerminal(int(stdin.Fd())) {
			fs.Usage()
			return exitError
		}
		var err error
		if urls, err = readLines(stdin); err != nil {
			fmt.Fprintf(stderr, "error: read stdin: %v\n", err)
			return exitError
		}
	}

	if *noColor {
		color.NoColor = true
	}
	p := newPrinter(stdout, *jsonOut)

	code := exitOK
	for _, u := range urls {
		res := engine.Classify(u)
		if err := p.print(res); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
		if res.Level == classify.LevelHigh {
			code = exitHigh
		}
	}
	return code
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

type printer struct {
	w      io.Writer
	json   bool
	colors map[classify.Level]*color.Color
	dim    *color.Color
}

func newPrinter(w io.Writer, jsonOut bool) *printer {
	return &printer{
		w:    w,
		json: jsonOut,
		colors: map[classify.Level]*color.Color{
			classify.LevelSafe:   color.New(color.FgGreen),
			classify.LevelMedium: color.New(color.FgYellow),
			classify.LevelHigh:   color.New(color.FgRed, color.Bold),
		},
		dim: color.New(color.FgCyan),
	}
}

func (p *printer) print(res classify.Result) error {
	if p.json {
		return json.NewEncoder(p.w).Encode(res)
	}

	host := res.Host
	if host == "" {
		host = "-"
	}
	level := p.colors[res.Level].Sprintf("%-6s", res.Level)
	if _, err := fmt.Fprintf(p.w, "%s %3d  %s  %s\n", level, res.Score, p.dim.Sprint(host), res.URL); err != nil {
		return err
	}
	for _, reason := range res.Reasons {
		if _, err := fmt.Fprintf(p.w, "         - %s\n", reason); err != nil {
			return err
		}
	}
	return nil
}
