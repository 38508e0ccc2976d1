package rhi

import "log/slog"

// DebugSeverity classifies debug callback messages.
type DebugSeverity uint8

const (
	// SeverityInfo is informational (resource created, adapter selected).
	SeverityInfo DebugSeverity = iota

	// SeverityWarning is a non-fatal problem (leaked resource, fallback).
	SeverityWarning

	// SeverityError is a failed operation.
	SeverityError
)

// String returns the string representation of the severity.
func (s DebugSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	default:
		return "Unknown"
	}
}

// DebugMessage is one diagnostic event emitted by the render system.
type DebugMessage struct {
	// Severity classifies the message.
	Severity DebugSeverity

	// Source names the operation that produced the message.
	Source string

	// Message is the human-readable text.
	Message string
}

// DebugCallback receives diagnostic events. Callbacks run synchronously
// on the goroutine that triggered the event and must not call back into
// the system.
type DebugCallback func(DebugMessage)

// SetDebugCallback installs a diagnostic callback. Passing the callback
// already installed is a no-op; passing nil removes it. Safe for
// concurrent use.
func (s *System) SetDebugCallback(cb DebugCallback) {
	if cb == nil {
		s.debugCB.Store(nil)
		return
	}
	s.debugCB.Store(&cb)
}

// emitDebug delivers a message to the installed callback and mirrors it
// to the logger at a matching level.
func (s *System) emitDebug(sev DebugSeverity, source, msg string) {
	if p := s.debugCB.Load(); p != nil {
		(*p)(DebugMessage{Severity: sev, Source: source, Message: msg})
	}
	switch sev {
	case SeverityWarning:
		Logger().Warn(msg, slog.String("source", source))
	case SeverityError:
		Logger().Error(msg, slog.String("source", source))
	default:
		Logger().Debug(msg, slog.String("source", source))
	}
}
