// Package logger holds the process-wide structured logger.
//
// Output always goes to stderr: the stdio MCP transport owns stdout.
package logger

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldRequestID  = "request_id"
	FieldComponent  = "component"
	FieldQuery      = "query"
	FieldItemID     = "inventory_id"
	FieldMethod     = "method"
	FieldHorizon    = "horizon"
	FieldScore      = "score"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldTransport  = "transport"
	FieldAddress    = "address"
	FieldSource     = "source"
	FieldReason     = "reason"
	FieldFile       = "file"
	FieldSheet      = "sheet"
	FieldRow        = "row"
	FieldItems      = "items"
	FieldStock      = "final_stock"
	FieldEmbedded   = "embedded"
	FieldSkipped    = "skipped"
	FieldDeleted    = "deleted"
	FieldHTTPMethod = "http_method"
	FieldPath       = "path"
	FieldStatus     = "status"
)

var (
	// Logger is the global logger instance.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether JSON output is enabled.
	JSONOutput bool
)

func init() {
	// No-op until Initialize so early callers never hit a nil logger.
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger.
func Initialize(level string, jsonOutput bool) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput

	var zapLogger *zap.Logger
	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		zapLogger, err = cfg.Build()
		if err != nil {
			return errors.Wrap(err, "build json logger")
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encCfg),
				zapcore.AddSync(os.Stderr),
				lvl,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Named returns a child of the global logger tagged with a component name.
func Named(component string) *zap.SugaredLogger {
	return Logger.With(FieldComponent, component)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func parseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zap.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, errors.Wrapf(err, "invalid log level %q", level)
	}
	return lvl, nil
}
