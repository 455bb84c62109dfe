package lockana

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/lockana/internal/audit"
)

// AuditEvent is one append-only audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink writes audit events as structured log records.
type LoggerSink = internalaudit.LoggerSink

// MultiSink fans each event out to every sink in order.
type MultiSink = internalaudit.MultiSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing newline-delimited JSON to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink returns a sink writing to logger.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}
