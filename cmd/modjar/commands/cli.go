package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/modjar/internal/config"
)

// Global is bound into every command's Run.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing command output.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Build file path" default:"modjar.yaml" env:"MODJAR_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides logging.format"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd      `cmd:"" help:"Compile, assemble and document the configured projects"`
	Compose    ComposeCmd    `cmd:"" help:"Print the compiler invocations composed for a project"`
	Assemble   AssembleCmd   `cmd:"" help:"Assemble artifacts from existing compiler output"`
	Docs       DocsCmd       `cmd:"" help:"Generate the aggregated API documentation"`
	FetchLinks FetchLinksCmd `cmd:"" name:"fetch-links" help:"Download element lists of external modules"`
	Watch      WatchCmd      `cmd:"" help:"Rebuild whenever sources or the build file change"`
	History    HistoryCmd    `cmd:"" help:"Show recent builds from the build ledger"`
	Init       InitCmd       `cmd:"" help:"Write an example build file"`
	Info       VersionCmd    `cmd:"" name:"version" help:"Print version information"`
}

// logOutput is where the slog handler writes; tests replace it.
var logOutput io.Writer = os.Stderr

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	setupLogging(parseLogLevel(c.Verbose, ""), config.NormalizeLogFormat(c.LogFormat))
	return nil
}

// parseLogLevel picks the level: MODJAR_LOG_LEVEL, then -v, then the build file.
func parseLogLevel(verbose bool, configured config.LogLevel) slog.Level {
	if env := strings.TrimSpace(os.Getenv("MODJAR_LOG_LEVEL")); env != "" {
		return config.NormalizeLogLevel(env).SlogLevel()
	}
	if verbose {
		return slog.LevelDebug
	}
	if configured != "" {
		return configured.SlogLevel()
	}
	return slog.LevelInfo
}

func setupLogging(level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(logOutput, opts)
	} else {
		handler = slog.NewTextHandler(logOutput, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the build file and re-applies its logging section.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	format := cfg.Logging.Format
	if root.LogFormat != "" {
		format = config.NormalizeLogFormat(root.LogFormat)
	}
	setupLogging(parseLogLevel(root.Verbose, cfg.Logging.Level), format)
	return cfg, nil
}
