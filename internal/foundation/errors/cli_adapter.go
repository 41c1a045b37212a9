package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ExitInterrupted is returned when the run was canceled by a signal.
const ExitInterrupted = 130

// CLIErrorAdapter turns a command error into a message and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr, exit: os.Exit}
}

// ExitCodeFor maps err to a process status. Unclassified errors exit 1.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	if classified, ok := AsClassified(err); ok {
		return classified.Category().ExitCode()
	}
	return 1
}

// FormatError renders err for the terminal. Without -v only the message and
// its location are shown; tool diagnostics are always appended.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, context.Canceled) {
		return "Interrupted"
	}
	classified, ok := AsClassified(err)
	if !ok {
		return "Error: " + err.Error()
	}
	if classified.Category() == CategoryInternal && !a.verbose {
		return "Internal error occurred (use -v for details)"
	}

	var b strings.Builder
	b.WriteString("Error: ")
	if a.verbose {
		b.WriteString(classified.Error())
	} else {
		b.WriteString(classified.Message())
		for _, key := range locationKeys {
			if v, ok := classified.Context().GetString(key); ok && v != "" {
				fmt.Fprintf(&b, " [%s=%s]", key, v)
			}
		}
	}
	if diag := strings.TrimSpace(classified.Diagnostics()); diag != "" {
		b.WriteString("\n")
		b.WriteString(diag)
	}
	return b.String()
}

// HandleError prints err and exits the process.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	a.exit(a.ExitCodeFor(err))
}

// shouldLog keeps the terminal quiet for ordinary failures; fatal ones and
// anything under -v also go to the log.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if classified, ok := AsClassified(err); ok {
		return classified.Severity() == SeverityFatal
	}
	return !stderrors.Is(err, context.Canceled)
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", slog.Any("error", err))
		return
	}
	level := slog.LevelError
	if classified.Severity() == SeverityWarning {
		level = slog.LevelWarn
	}
	// Diagnostics are printed with the message already.
	attrs := classified.Attrs()
	if n := len(attrs); n > 0 && attrs[n-1].Key == ContextDiagnostics {
		attrs = attrs[:n-1]
	}
	a.logger.LogAttrs(context.Background(), level, classified.Message(), attrs...)
}
