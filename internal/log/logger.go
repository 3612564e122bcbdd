// Package log prints unmapped accession warnings as they happen and writes
// an end-of-run report in summary, JSON or CSV form.
package log

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"

	"accremap/internal/config"
	"accremap/internal/errors"
	"accremap/internal/replacement"
)

// Entry is one unmapped annotation record.
type Entry struct {
	Source    string `json:"source"`
	Line      int    `json:"line"`
	Accession string `json:"accession"`
	Row       string `json:"row"`
}

// Summary provides aggregate statistics for a run.
type Summary struct {
	InputFile       string         `json:"input_file"`
	TableFile       string         `json:"table_file"`
	OutputFile      string         `json:"output_file"`
	Direction       string         `json:"direction"`
	MappingSize     int            `json:"mapping_size"`
	LinesRead       int            `json:"lines_read"`
	LinesWritten    int            `json:"lines_written"`
	Headers         int            `json:"headers"`
	CommentsDropped int            `json:"comments_dropped"`
	BlankLines      int            `json:"blank_lines"`
	Remapped        int            `json:"remapped"`
	Unmapped        int            `json:"unmapped"`
	UnmappedBySeqid map[string]int `json:"unmapped_by_seqid,omitempty"`
	BackupPath      string         `json:"backup_path,omitempty"`
	ProcessingTime  time.Duration  `json:"processing_time"`
}

// Logger collects warnings and statistics for one run.
type Logger struct {
	config     *config.Config
	stderr     io.Writer
	writer     io.Writer
	warnPrefix *color.Color
	entries    []Entry
	summary    Summary
}

// NewLogger creates a Logger. Warnings go to stderr; the report goes to
// cfg.LogFile when set, otherwise to stderr as well.
func NewLogger(cfg *config.Config, stderr io.Writer) (*Logger, error) {
	writer := stderr

	if cfg.LogFile != "" {
		file, err := os.Create(cfg.LogFile)
		if err != nil {
			return nil, errors.WrapWriteError(cfg.LogFile, err)
		}
		writer = file
	}

	prefix := color.New(color.FgYellow, color.Bold)
	if cfg.ColorOutput {
		prefix.EnableColor()
	} else {
		prefix.DisableColor()
	}

	return &Logger{
		config:     cfg,
		stderr:     stderr,
		writer:     writer,
		warnPrefix: prefix,
		entries:    []Entry{},
		summary: Summary{
			InputFile:  cfg.InputFile,
			TableFile:  cfg.TableFile,
			OutputFile: cfg.OutputFile,
			Direction:  cfg.Direction.String(),
		},
	}, nil
}

// Warn records an unmapped accession and prints it unless quiet.
func (l *Logger) Warn(w *errors.UnmappedAccessionWarning) {
	if l.keepsEntries() {
		l.entries = append(l.entries, Entry{
			Source:    w.Path,
			Line:      w.Line,
			Accession: w.Accession,
			Row:       w.Row,
		})
	}

	if !l.config.ShouldWarn() {
		return
	}

	l.warnPrefix.Fprint(l.stderr, "WARNING:")
	fmt.Fprintf(l.stderr, " %s:%d: unmapped accession %q: %q\n", w.Path, w.Line, w.Accession, w.Row)
}

// keepsEntries reports whether the configured report lists every warning.
// The plain-text summary only needs the per-seqid counts.
func (l *Logger) keepsEntries() bool {
	return l.config.LogFile != "" && l.config.LogFormat != config.LogFormatSummary
}

// Infof prints a progress message in verbose mode.
func (l *Logger) Infof(format string, args ...interface{}) {
	if !l.config.IsVerbose() {
		return
	}
	fmt.Fprintf(l.stderr, format+"\n", args...)
}

// SetMappingSize records how many accessions the conversion table maps.
func (l *Logger) SetMappingSize(n int) {
	l.summary.MappingSize = n
}

// SetBackupPath records where the previous output was copied.
func (l *Logger) SetBackupPath(path string) {
	l.summary.BackupPath = path
}

// LogResult folds the engine's counters into the summary.
func (l *Logger) LogResult(result *replacement.Result) {
	if result == nil {
		return
	}

	l.summary.LinesRead = result.LinesRead
	l.summary.LinesWritten = result.LinesWritten
	l.summary.Headers = result.Headers
	l.summary.CommentsDropped = result.Comments
	l.summary.BlankLines = result.Blanks
	l.summary.Remapped = result.Remapped
	l.summary.Unmapped = result.Unmapped
	if len(result.UnmappedAccessions) > 0 {
		l.summary.UnmappedBySeqid = result.UnmappedAccessions
	}
}

// SetProcessingTime records the total run duration.
func (l *Logger) SetProcessingTime(duration time.Duration) {
	l.summary.ProcessingTime = duration
}

// Summary returns the statistics gathered so far.
func (l *Logger) Summary() Summary {
	return l.summary
}

// Entries returns the recorded warnings in input order. Warnings are only
// recorded when a JSON or CSV log file is configured.
func (l *Logger) Entries() []Entry {
	return l.entries
}

// WriteReport writes the final report in the configured format. It does
// nothing unless a log file or verbose mode was requested.
func (l *Logger) WriteReport() error {
	if !l.config.ShouldReport() {
		return nil
	}

	switch l.config.LogFormat {
	case config.LogFormatJSON:
		return l.writeJSONReport()
	case config.LogFormatCSV:
		return l.writeCSVReport()
	default:
		return l.writeSummaryReport()
	}
}

func (l *Logger) writeJSONReport() error {
	report := struct {
		Summary Summary `json:"summary"`
		Entries []Entry `json:"entries"`
	}{
		Summary: l.summary,
		Entries: l.entries,
	}

	encoder := json.NewEncoder(l.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (l *Logger) writeCSVReport() error {
	writer := csv.NewWriter(l.writer)

	if err := writer.Write([]string{"source", "line", "accession", "row"}); err != nil {
		return err
	}

	for _, entry := range l.entries {
		record := []string{
			entry.Source,
			strconv.Itoa(entry.Line),
			entry.Accession,
			entry.Row,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Fprintf(l.writer, "# convert_accessions CSV report (%s)\n", l.summary.Direction)
	fmt.Fprintf(l.writer, "# Mapped accessions: %d\n", l.summary.MappingSize)
	fmt.Fprintf(l.writer, "# Lines read: %d\n", l.summary.LinesRead)
	fmt.Fprintf(l.writer, "# Lines written: %d\n", l.summary.LinesWritten)
	fmt.Fprintf(l.writer, "# Records remapped: %d\n", l.summary.Remapped)
	fmt.Fprintf(l.writer, "# Records unmapped: %d\n", l.summary.Unmapped)
	fmt.Fprintf(l.writer, "# Processing time: %v\n", l.summary.ProcessingTime)

	return nil
}

func (l *Logger) writeSummaryReport() error {
	s := l.summary

	fmt.Fprintf(l.writer, "\n=== convert_accessions summary (%s) ===\n", s.Direction)
	fmt.Fprintf(l.writer, "Input: %s\n", s.InputFile)
	fmt.Fprintf(l.writer, "Conversion table: %s (%d accessions)\n", s.TableFile, s.MappingSize)
	fmt.Fprintf(l.writer, "Output: %s\n", s.OutputFile)
	if s.BackupPath != "" {
		fmt.Fprintf(l.writer, "Backup: %s\n", s.BackupPath)
	}
	fmt.Fprintf(l.writer, "Lines read: %d\n", s.LinesRead)
	fmt.Fprintf(l.writer, "Lines written: %d\n", s.LinesWritten)
	fmt.Fprintf(l.writer, "Headers kept: %d\n", s.Headers)
	fmt.Fprintf(l.writer, "Comments dropped: %d\n", s.CommentsDropped)
	fmt.Fprintf(l.writer, "Records remapped: %d\n", s.Remapped)
	fmt.Fprintf(l.writer, "Records unmapped: %d\n", s.Unmapped)
	fmt.Fprintf(l.writer, "Processing time: %v\n", s.ProcessingTime)

	if len(s.UnmappedBySeqid) > 0 {
		fmt.Fprintf(l.writer, "\nUnmapped seqids:\n")
		seqids := make([]string, 0, len(s.UnmappedBySeqid))
		for seqid := range s.UnmappedBySeqid {
			seqids = append(seqids, seqid)
		}
		sort.Strings(seqids)
		for _, seqid := range seqids {
			fmt.Fprintf(l.writer, "  %s: %d rows\n", seqid, s.UnmappedBySeqid[seqid])
		}
	}

	return nil
}

// Close releases the report file, if one was opened. The stderr writer is
// never closed.
func (l *Logger) Close() error {
	if l.writer == l.stderr {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
