// Package logging builds the process ectologger with a zap sink.
package logging

import (
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// New returns an ectologger.Logger whose entries are written through zap.
// pretty selects the console encoder for local development.
func New(appName, level string, pretty bool) (ectologger.Logger, func(), error) {
	var zcfg zap.Config
	if pretty {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	zcfg.DisableStacktrace = true

	base, err := zcfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, nil, err
	}
	base = base.With(zap.String("app", appName))

	return zapadapter.NewZapEctoLogger(base, withContextFields), func() { _ = base.Sync() }, nil
}

// Discard returns a logger that drops every entry. Used by tests and the CLI.
func Discard() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// withContextFields copies request and trace identifiers from the entry's context.
func withContextFields(msg ectologger.EctoLogMessage) ectologger.EctoLogMessage {
	if msg.Ctx == nil {
		return msg
	}
	fields := make(map[string]interface{}, len(msg.Fields)+4)
	for k, v := range msg.Fields {
		fields[k] = v
	}
	if id := appctx.GetRequestID(msg.Ctx); id != "" {
		fields["request_id"] = id
	}
	if id := tracing.GetTraceID(msg.Ctx); id != "" {
		fields["trace_id"] = id
	}
	if event, entityID := appctx.GetIndexEvent(msg.Ctx); event != "" {
		fields["index_event"] = event
		fields["index_entity_id"] = entityID
	}
	msg.Fields = fields
	return msg
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
