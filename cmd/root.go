package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"accremap/internal/config"
)

// Execute runs the root command and handles top-level error reporting.
// Any fatal error is printed once to stderr and turns into exit status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}
	direction := directionFlag(config.RefSeqToGenBank)

	cmd := &cobra.Command{
		Use:   "convert_accessions <input_gff3> <conversion_table> <output_gff3>",
		Short: "Convert GFF3 seqids between RefSeq and GenBank accessions",
		Long: `convert_accessions rewrites the first column of a GFF3 file from RefSeq to
GenBank accessions, or the reverse, using an NCBI assembly report as the
conversion table. ##gff directives are kept, other comment lines are dropped,
and records whose accession is not in the table are kept unchanged and
reported on stderr. Blank lines are copied through as they are, without a
warning.`,
		Example: `  convert_accessions genomic.gff GCF_000001405.40_assembly_report.txt genbank.gff
  convert_accessions genbank.gff assembly_report.txt refseq.gff --refseq-to-genbank False`,
		Args:          cobra.ExactArgs(3),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputFile = args[0]
			cfg.TableFile = args[1]
			cfg.OutputFile = args[2]
			cfg.Direction = config.Direction(direction)
			cfg.ColorOutput = isTerminal(cmd.ErrOrStderr())

			if err := cfg.Validate(); err != nil {
				return err
			}

			// past argument checking, failures are not usage problems
			cmd.SilenceUsage = true
			return executeRemap(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.Var(&direction, "refseq-to-genbank", "Map RefSeq-Accn to GenBank-Accn when true, GenBank-Accn to RefSeq-Accn when false")
	flags.BoolVar(&cfg.Backup, "backup", false, "Copy an existing output file to a timestamped .bak before replacing it")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Print progress and a summary report")
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Do not print unmapped accession warnings")
	flags.StringVar(&cfg.LogFile, "log", "", "Write the run report to this file")
	flags.Var((*logFormatFlag)(&cfg.LogFormat), "log-format", "Report format (json, csv; default: summary text)")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// directionFlag parses the --refseq-to-genbank value with strconv.ParseBool
// spellings, so "False" really means false.
type directionFlag config.Direction

var _ pflag.Value = (*directionFlag)(nil)

func (f *directionFlag) String() string {
	if config.Direction(*f) == config.GenBankToRefSeq {
		return "false"
	}
	return "true"
}

func (f *directionFlag) Set(v string) error {
	d, err := config.ParseDirection(v)
	if err != nil {
		return err
	}
	*f = directionFlag(d)
	return nil
}

func (f *directionFlag) Type() string {
	return "bool"
}

type logFormatFlag config.LogFormat

var _ pflag.Value = (*logFormatFlag)(nil)

func (f *logFormatFlag) String() string {
	return string(*f)
}

func (f *logFormatFlag) Set(v string) error {
	switch config.LogFormat(v) {
	case config.LogFormatJSON, config.LogFormatCSV:
		*f = logFormatFlag(v)
		return nil
	default:
		return fmt.Errorf("must be 'json' or 'csv'")
	}
}

func (f *logFormatFlag) Type() string {
	return "string"
}
