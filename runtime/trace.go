package runtime

import (
	"log/slog"
	"time"
)

// TraceEvent is one entry in the ordered trace the engine collects while
// executing a step.
type TraceEvent struct {
	Time    time.Time      `json:"time"`
	Level   slog.Level     `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// traceLog accumulates events and mirrors them to the engine logger.
type traceLog struct {
	l      *slog.Logger
	exec   *Execution
	events []TraceEvent
}

func newTraceLog(l *slog.Logger, exec *Execution) *traceLog {
	return &traceLog{l: l, exec: exec}
}

func (t *traceLog) add(level slog.Level, message string, fields map[string]any) {
	t.events = append(t.events, TraceEvent{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Fields:  fields,
	})

	attrs := make([]any, 0, 2*len(fields)+4)
	attrs = append(attrs, "workflow_id", string(t.exec.ID), "step", string(t.exec.StepID))
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	t.l.Log(t.exec, level, message, attrs...)
}

func (t *traceLog) debug(msg string, fields map[string]any) { t.add(slog.LevelDebug, msg, fields) }
func (t *traceLog) info(msg string, fields map[string]any)  { t.add(slog.LevelInfo, msg, fields) }
func (t *traceLog) warn(msg string, fields map[string]any)  { t.add(slog.LevelWarn, msg, fields) }
func (t *traceLog) error(msg string, fields map[string]any) { t.add(slog.LevelError, msg, fields) }
