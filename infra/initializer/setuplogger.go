package initializer

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	debugColor = lipgloss.AdaptiveColor{Light: "#7E57C2", Dark: "#7E57C2"}
	infoColor  = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warnColor  = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	errorColor = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF6B6B"}
	moneyColor = lipgloss.AdaptiveColor{Light: "#1E88E5", Dark: "#64B5F6"}
)

var levelBadges = map[log.Level]struct {
	badge string
	color lipgloss.AdaptiveColor
}{
	log.DebugLevel: {"DBG", debugColor},
	log.InfoLevel:  {"INF", infoColor},
	log.WarnLevel:  {"WRN", warnColor},
	log.ErrorLevel: {"ERR", errorColor},
}

// Keys that identify a ledger entry stand out in text logs.
var keyColors = map[string]lipgloss.AdaptiveColor{
	"error":      errorColor,
	"warning":    warnColor,
	"account":    moneyColor,
	"amount":     moneyColor,
	"balance":    moneyColor,
	"event_type": infoColor,
	"prefix":     debugColor,
	"caller":     debugColor,
	"time":       debugColor,
}

func logStyles() *log.Styles {
	styles := log.DefaultStyles()
	for level, b := range levelBadges {
		styles.Levels[level] = lipgloss.NewStyle().
			SetString(b.badge).
			Bold(true).
			Padding(0, 1).
			Foreground(b.color)
	}
	for key, c := range keyColors {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(c)
		styles.Values[key] = lipgloss.NewStyle().Bold(true)
	}
	return styles
}

// newLogger builds a charmbracelet handler writing to w. Unknown formats
// fall back to text.
func newLogger(cfg *config.Log, w io.Writer) *log.Logger {
	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           log.Level(cfg.Level),
		Prefix:          cfg.Prefix,
		Formatter:       formatter,
	})
	if formatter == log.TextFormatter {
		logger.SetStyles(logStyles())
	}
	return logger
}

// setupLogger installs the process logger as slog's default.
func setupLogger(cfg *config.Log) *slog.Logger {
	slogger := slog.New(newLogger(cfg, os.Stdout))
	slog.SetDefault(slogger)
	return slogger
}
