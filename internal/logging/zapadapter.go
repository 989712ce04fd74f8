package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapCore forwards zap log entries into a Logger, so components written
// against *zap.Logger share the server's log stream and level filtering.
type zapCore struct {
	logger *Logger
}

// NewZapLogger wraps a Logger in a *zap.Logger.
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(&zapCore{logger: logger})
}

// mapLevel converts a zapcore level to the logger's Level. Panic-class
// levels collapse to Error; the adapter never exits the process.
func mapLevel(level zapcore.Level) Level {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	}
	return ErrorLevel
}

// fieldMap materializes zap fields into plain values via zap's own map
// encoder, which handles every field type including floats and durations.
func fieldMap(fields []zapcore.Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

func (c *zapCore) Enabled(level zapcore.Level) bool {
	return mapLevel(level) >= c.logger.level
}

func (c *zapCore) With(fields []zapcore.Field) zapcore.Core {
	return &zapCore{logger: c.logger.WithFields(fieldMap(fields))}
}

func (c *zapCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *zapCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.logger.log(mapLevel(ent.Level), ent.Message, fieldMap(fields))
	return nil
}

func (c *zapCore) Sync() error {
	return nil
}
