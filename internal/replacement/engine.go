// Package replacement rewrites the seqid column of GFF3 annotation lines.
// Each line passes through a middleware pipeline that classifies it and,
// for feature records, swaps field 0 for its mapped accession. The engine
// streams an input one line at a time and reports unmapped seqids through a
// warning handler without stopping.
package replacement

import (
	"bufio"
	"context"
	"io"
	"strings"

	"accremap/internal/errors"
)

// LineKind classifies an annotation line.
type LineKind int

// Line kinds produced by the default pipeline.
const (
	LineRecord LineKind = iota
	LineHeader
	LineComment
	LineBlank
)

func (k LineKind) String() string {
	switch k {
	case LineRecord:
		return "record"
	case LineHeader:
		return "header"
	case LineComment:
		return "comment"
	case LineBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// headerPrefix marks GFF structural directives that are copied verbatim.
const headerPrefix = "##gff"

// Lookuper resolves a source accession to its replacement.
type Lookuper interface {
	Lookup(accession string) (string, bool)
}

// LineResult is the outcome of remapping one line.
type LineResult struct {
	Kind LineKind
	// Text is the line to write, including its original terminator. It is
	// empty when Dropped is set.
	Text      string
	Dropped   bool
	Accession string
	Mapped    string
	Remapped  bool
}

// Unmapped reports whether the line is a record whose seqid has no mapping.
func (r LineResult) Unmapped() bool {
	return r.Kind == LineRecord && !r.Remapped
}

// LineContext carries one line through the middleware pipeline.
type LineContext struct {
	Number     int
	Line       string
	Terminator string
	Mappings   Lookuper
	Result     LineResult
	// Done stops the remaining middleware once the line is fully decided.
	Done bool
}

// Middleware is one step of the per-line pipeline.
type Middleware func(LineContext) LineContext

// WarningHandler receives every unmapped accession warning.
type WarningHandler func(*errors.UnmappedAccessionWarning)

// Result summarises one pass over an annotation stream.
type Result struct {
	Source             string
	LinesRead          int
	LinesWritten       int
	Headers            int
	Comments           int
	Blanks             int
	Remapped           int
	Unmapped           int
	UnmappedAccessions map[string]int
}

func (r *Result) record(lr LineResult) {
	r.LinesRead++
	if !lr.Dropped {
		r.LinesWritten++
	}

	switch lr.Kind {
	case LineHeader:
		r.Headers++
	case LineComment:
		r.Comments++
	case LineBlank:
		r.Blanks++
	case LineRecord:
		if lr.Remapped {
			r.Remapped++
			return
		}
		r.Unmapped++
		r.UnmappedAccessions[lr.Accession]++
	}
}

// Engine remaps annotation streams against a fixed lookup.
type Engine struct {
	mappings   Lookuper
	source     string
	onUnmapped WarningHandler
	middleware []Middleware
}

// NewEngine creates an engine with the default pipeline: classify the line,
// then remap feature records. source names the input in warnings.
func NewEngine(mappings Lookuper, source string) *Engine {
	engine := &Engine{
		mappings:   mappings,
		source:     source,
		middleware: []Middleware{},
	}

	engine.Use(classifyMiddleware)
	engine.Use(remapMiddleware)

	return engine
}

// Use appends a middleware to the pipeline. It runs after the default steps
// unless an earlier step marks the line done.
func (e *Engine) Use(middleware Middleware) {
	e.middleware = append(e.middleware, middleware)
}

// OnUnmapped sets the handler for unmapped accession warnings.
func (e *Engine) OnUnmapped(handler WarningHandler) {
	e.onUnmapped = handler
}

// ProcessLine runs a single line, with or without its terminator, through
// the pipeline.
func (e *Engine) ProcessLine(number int, line string) LineResult {
	body, term := splitTerminator(line)
	ctx := LineContext{
		Number:     number,
		Line:       body,
		Terminator: term,
		Mappings:   e.mappings,
	}

	for _, mw := range e.middleware {
		ctx = mw(ctx)
		if ctx.Done {
			break
		}
	}

	if ctx.Result.Dropped {
		ctx.Result.Text = ""
	}
	return ctx.Result
}

// checkEvery bounds how many lines are processed between context checks.
const checkEvery = 4096

// Process streams r to w line by line. Unmapped records are written with
// their original seqid and reported to the warning handler. The returned
// error is always fatal: a read or write failure or a cancelled context.
func (e *Engine) Process(ctx context.Context, r io.Reader, w io.Writer) (*Result, error) {
	result := &Result{
		Source:             e.source,
		UnmappedAccessions: make(map[string]int),
	}

	reader := bufio.NewReaderSize(r, 64*1024)
	writer := bufio.NewWriterSize(w, 64*1024)

	for number := 1; ; number++ {
		if number%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		line, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return result, errors.NewFileNotReadableError(e.source, readErr)
		}
		if line == "" {
			break
		}

		lr := e.ProcessLine(number, line)
		result.record(lr)

		if lr.Unmapped() && e.onUnmapped != nil {
			body, _ := splitTerminator(line)
			e.onUnmapped(errors.NewUnmappedAccessionWarning(e.source, number, lr.Accession, body))
		}

		if !lr.Dropped {
			if _, err := writer.WriteString(lr.Text); err != nil {
				return result, err
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	if err := writer.Flush(); err != nil {
		return result, err
	}
	return result, ctx.Err()
}

// RemapLine rewrites one annotation line with the default pipeline. It has
// no side effects.
func RemapLine(mappings Lookuper, line string) LineResult {
	return NewEngine(mappings, "").ProcessLine(0, line)
}

func classifyMiddleware(ctx LineContext) LineContext {
	ctx.Result.Text = ctx.Line + ctx.Terminator

	switch {
	case strings.HasPrefix(ctx.Line, headerPrefix):
		ctx.Result.Kind = LineHeader
		ctx.Done = true
	case strings.HasPrefix(ctx.Line, "#"):
		ctx.Result.Kind = LineComment
		ctx.Result.Dropped = true
		ctx.Done = true
	case ctx.Line == "":
		ctx.Result.Kind = LineBlank
		ctx.Done = true
	default:
		ctx.Result.Kind = LineRecord
	}

	return ctx
}

func remapMiddleware(ctx LineContext) LineContext {
	if ctx.Result.Kind != LineRecord {
		return ctx
	}

	seqid, rest, hasRest := strings.Cut(ctx.Line, "\t")
	ctx.Result.Accession = seqid
	if ctx.Mappings == nil {
		return ctx
	}

	mapped, ok := ctx.Mappings.Lookup(seqid)
	if !ok {
		return ctx
	}

	ctx.Result.Mapped = mapped
	ctx.Result.Remapped = true
	if hasRest {
		ctx.Result.Text = mapped + "\t" + rest + ctx.Terminator
	} else {
		ctx.Result.Text = mapped + ctx.Terminator
	}

	return ctx
}

func splitTerminator(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}
