package tsc

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/wharflab/tscheck/internal/diagnostic"
	"github.com/wharflab/tscheck/internal/watchstatus"
)

var (
	// src/a.ts(10,6): error TS2322: Type 'string' is not assignable to type 'number'.
	locatedRe = regexp.MustCompile(`^(.+)\((\d+),(\d+)\): (error|warning|message|suggestion) TS(\d+): (.*)$`)
	// error TS18003: No inputs were found in config file 'tsconfig.json'.
	globalRe = regexp.MustCompile(`^(error|warning|message|suggestion) TS(\d+): (.*)$`)
	// 12:00:00 AM - Starting compilation in watch mode...
	// [12:00:00] Found 0 errors. Watching for file changes.
	statusRe = regexp.MustCompile(`^\[?\d{1,2}[:.]\d{2}[:.]\d{2}(?:\s*[AaPp]\.?[Mm]\.?)?\]?\s*-?\s+(.+)$`)
	foundRe  = regexp.MustCompile(`^Found (\d+) errors?\. Watching for file changes\.`)
	ansiRe   = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[A-Za-z]|c)`)
)

// statusCode maps a watch status message to the compiler's diagnostic code.
// Unrecognized statuses map to 0.
func statusCode(text string) int {
	switch {
	case strings.HasPrefix(text, "Starting compilation in watch mode"):
		return watchstatus.CodeStartingWatch
	case strings.HasPrefix(text, "File change detected. Starting incremental compilation"):
		return watchstatus.CodeFileChangeDetected
	}
	if m := foundRe.FindStringSubmatch(text); m != nil {
		if m[1] == "1" {
			return watchstatus.CodeFoundOneError
		}
		return watchstatus.CodeFoundErrorsWatching
	}
	return 0
}

func parseCategory(s string) diagnostic.Category {
	c, err := diagnostic.ParseCategory(s)
	if err != nil {
		return diagnostic.CategoryError
	}
	return c
}

// parser turns `tsc --pretty false` output into diagnostics, one line at a
// time. A diagnostic is held until the next line that is not one of its
// indented continuation lines, so message chains arrive whole.
type parser struct {
	baseDir      string
	onDiagnostic func(diagnostic.Raw)
	onStatus     func(diagnostic.Raw)
	onOther      func(string)

	pending *diagnostic.Raw
	chain   []*diagnostic.MessageChain
}

func (p *parser) line(raw string) {
	line := strings.TrimRight(ansiRe.ReplaceAllString(raw, ""), "\r")

	if p.pending != nil && strings.HasPrefix(line, "  ") && strings.TrimSpace(line) != "" {
		p.continuation(line)
		return
	}
	p.flush()

	if strings.TrimSpace(line) == "" {
		return
	}
	if m := locatedRe.FindStringSubmatch(line); m != nil {
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		code, _ := strconv.Atoi(m[5])
		// --pretty false prints no span, so Length stays 0.
		p.start(diagnostic.Raw{
			Category: parseCategory(m[4]),
			Code:     code,
			Message:  diagnostic.MessageChain{Text: m[6]},
			Location: &diagnostic.Location{
				File:      p.resolve(m[1]),
				Line:      max(lineNo-1, 0),
				Character: max(col-1, 0),
			},
		})
		return
	}
	if m := globalRe.FindStringSubmatch(line); m != nil {
		code, _ := strconv.Atoi(m[2])
		p.start(diagnostic.Raw{
			Category: parseCategory(m[1]),
			Code:     code,
			Message:  diagnostic.MessageChain{Text: m[3]},
		})
		return
	}
	if m := statusRe.FindStringSubmatch(line); m != nil && p.onStatus != nil {
		text := strings.TrimSpace(m[1])
		p.onStatus(diagnostic.Raw{
			Category: diagnostic.CategoryMessage,
			Code:     statusCode(text),
			Message:  diagnostic.MessageChain{Text: text},
		})
		return
	}
	if p.onOther != nil {
		p.onOther(line)
	}
}

func (p *parser) start(d diagnostic.Raw) {
	p.pending = &d
	p.chain = append(p.chain[:0], &p.pending.Message)
}

// continuation attaches an indented line below the nearest shallower
// message. Two spaces of indentation make one level.
func (p *parser) continuation(line string) {
	text := strings.TrimLeft(line, " ")
	depth := (len(line) - len(text)) / 2
	parentIdx := min(depth-1, len(p.chain)-1)
	parent := p.chain[parentIdx]
	parent.Next = append(parent.Next, diagnostic.MessageChain{Text: text})
	p.chain = append(p.chain[:parentIdx+1], &parent.Next[len(parent.Next)-1])
}

func (p *parser) flush() {
	if p.pending == nil {
		return
	}
	d := *p.pending
	p.pending = nil
	p.chain = p.chain[:0]
	p.onDiagnostic(d)
}

func (p *parser) resolve(file string) string {
	if filepath.IsAbs(file) || p.baseDir == "" {
		return filepath.Clean(file)
	}
	return filepath.Join(p.baseDir, file)
}
