// Package config provides configuration management and validation for
// accession remapping. All command-line options are resolved once at
// startup into a Config value that is passed explicitly to every component.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"

	"accremap/internal/errors"
	"accremap/internal/fileio"
)

// LogFormat represents the supported output formats for the run report.
type LogFormat string

// Supported report formats. The zero value renders a plain-text summary.
const (
	LogFormatSummary LogFormat = ""
	LogFormatJSON    LogFormat = "json"
	LogFormatCSV     LogFormat = "csv"
)

// Direction selects which accession column of the conversion table is the
// lookup key and which one replaces it.
type Direction int

const (
	// RefSeqToGenBank rewrites RefSeq-Accn seqids to GenBank-Accn.
	RefSeqToGenBank Direction = iota
	// GenBankToRefSeq rewrites GenBank-Accn seqids to RefSeq-Accn.
	GenBankToRefSeq
)

func (d Direction) String() string {
	switch d {
	case RefSeqToGenBank:
		return "refseq-to-genbank"
	case GenBankToRefSeq:
		return "genbank-to-refseq"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// DirectionFromBool maps the --refseq-to-genbank flag value to a Direction.
func DirectionFromBool(refSeqToGenBank bool) Direction {
	if refSeqToGenBank {
		return RefSeqToGenBank
	}
	return GenBankToRefSeq
}

// ParseDirection parses a boolean flag spelling such as "True" or "0".
func ParseDirection(s string) (Direction, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return RefSeqToGenBank, fmt.Errorf("invalid boolean %q", s)
	}
	return DirectionFromBool(v), nil
}

// Config holds all runtime configuration options for one remapping run.
type Config struct {
	InputFile   string
	TableFile   string
	OutputFile  string
	Direction   Direction
	Backup      bool
	Verbose     bool
	Quiet       bool
	LogFile     string
	LogFormat   LogFormat
	ColorOutput bool
}

// Validate checks the configuration and resolves file paths to absolute
// form. It must be called before the Config is handed to other components.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}

	if err := c.validateLogFormat(); err != nil {
		return err
	}

	if c.Verbose && c.Quiet {
		return errors.NewConfigError("verbose and quiet are mutually exclusive", nil)
	}

	if c.Backup && c.OutputFile == fileio.StdStream {
		return errors.NewConfigError("backup cannot be used when writing to stdout", nil)
	}

	return nil
}

func (c *Config) validatePaths() error {
	var err error

	if c.InputFile, err = resolvePath(c.InputFile, "input file"); err != nil {
		return err
	}
	if c.TableFile, err = resolvePath(c.TableFile, "conversion table"); err != nil {
		return err
	}
	if c.OutputFile, err = resolvePath(c.OutputFile, "output file"); err != nil {
		return err
	}

	if c.TableFile == fileio.StdStream {
		return errors.NewConfigError("conversion table cannot be read from stdin", nil)
	}
	if c.OutputFile != fileio.StdStream && (c.OutputFile == c.InputFile || c.OutputFile == c.TableFile) {
		return errors.NewConfigErrorWithPath(c.OutputFile, "output file must differ from the input files", nil)
	}

	if c.LogFile != "" {
		if c.LogFile, err = resolvePath(c.LogFile, "log file"); err != nil {
			return err
		}
		if c.LogFile == fileio.StdStream {
			return errors.NewConfigError("log file cannot be stdout", nil)
		}
		for _, other := range []string{c.InputFile, c.TableFile, c.OutputFile} {
			if c.LogFile == other {
				return errors.NewConfigErrorWithPath(c.LogFile, "log file must differ from the input and output files", nil)
			}
		}
	}
	return nil
}

func resolvePath(path, what string) (string, error) {
	if path == "" {
		return "", errors.NewConfigError(what+" is required", nil)
	}
	if path == fileio.StdStream {
		return path, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewConfigErrorWithPath(path, "invalid "+what+" path", err)
	}
	return abs, nil
}

func (c *Config) validateLogFormat() error {
	switch c.LogFormat {
	case LogFormatSummary, LogFormatJSON, LogFormatCSV:
		return nil
	default:
		return errors.NewConfigError("log format must be 'json' or 'csv'", nil)
	}
}

// IsVerbose reports whether progress details should be printed.
func (c *Config) IsVerbose() bool {
	return c.Verbose && !c.Quiet
}

// ShouldWarn reports whether unmapped accession warnings are printed.
func (c *Config) ShouldWarn() bool {
	return !c.Quiet
}

// ShouldReport reports whether a final run report is written.
func (c *Config) ShouldReport() bool {
	return c.LogFile != "" || c.IsVerbose()
}
