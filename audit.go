package blogAuth

import (
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/blogAuth/internal/audit"
)

// AuditEvent is one security-relevant record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes newline-delimited JSON.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes events through a structured logger.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// AuditDropped reports events discarded because the audit buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}
