// Package cmd implements the command-line interface and orchestration logic
// for convert_accessions. It loads the conversion table, streams the
// annotation file through the replacement engine, and reports the outcome.
package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"accremap/internal/backup"
	"accremap/internal/config"
	"accremap/internal/errors"
	"accremap/internal/fileio"
	"accremap/internal/log"
	"accremap/internal/parser"
	"accremap/internal/replacement"
)

func executeRemap(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	startTime := time.Now()

	mappings, err := parser.LoadMappingTable(cfg.TableFile, cfg.Direction)
	if err != nil {
		return err
	}

	logger, err := log.NewLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.SetMappingSize(mappings.Size())
	logger.Infof("Loaded %d accessions (%s) from %d rows of %s",
		mappings.Size(), cfg.Direction, len(mappings.Rows()), cfg.TableFile)

	input, err := fileio.OpenInput(cfg.InputFile)
	if err != nil {
		return err
	}
	defer input.Close()

	backupManager := backup.NewBackupManager(cfg.Backup)
	backupPath, err := backupManager.BackupFile(cfg.OutputFile)
	if err != nil {
		return err
	}

	output, err := fileio.CreateAtomic(cfg.OutputFile)
	if err != nil {
		_ = backupManager.CleanupBackup(backupPath)
		return err
	}

	engine := replacement.NewEngine(mappings, cfg.InputFile)
	engine.OnUnmapped(logger.Warn)

	result, err := engine.Process(ctx, input, output)
	logger.LogResult(result)
	if err == nil {
		err = output.Commit()
	}

	if err != nil {
		_ = output.Abort()
		_ = backupManager.CleanupBackup(backupPath)

		if cfg.OutputFile == fileio.StdStream && fileio.IsBrokenPipe(err) {
			return nil
		}
		return classifyProcessError(cfg, err)
	}

	if backupPath != "" {
		logger.SetBackupPath(backupPath)
		logger.Infof("Previous output saved to %s", backupPath)
	}
	logger.Infof("Wrote %d lines to %s", result.LinesWritten, cfg.OutputFile)

	logger.SetProcessingTime(time.Since(startTime))
	return logger.WriteReport()
}

// classifyProcessError gives untyped stream errors a file context.
func classifyProcessError(cfg *config.Config, err error) error {
	if stderrors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted: %w", err)
	}

	if stderrors.Is(err, &errors.RemapError{Type: errors.ErrTypeFile}) {
		return err
	}
	return errors.WrapWriteError(cfg.OutputFile, err)
}
