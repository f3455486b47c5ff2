package schema

// LogEntryKind classifies a diagnostic record.
type LogEntryKind string

const (
	// LogPanic is a captured unexpected failure inside an actor. Carries a
	// reason and a backtrace; the actor is expected to have crashed
	// independently.
	LogPanic LogEntryKind = "panic"
	// LogError is a recoverable error report.
	LogError LogEntryKind = "error"
	// LogWarn is a warning, including protocol-level drops.
	LogWarn LogEntryKind = "warn"
)

// LogEntry is a severity-tagged diagnostic record. Entries are data, not
// control flow: they are aggregated centrally and never fail the pipeline
// that produced them.
type LogEntry struct {
	Kind      LogEntryKind `json:"kind"`
	Reason    string       `json:"reason"`
	Backtrace string       `json:"backtrace,omitempty"`
}

// PanicEntry builds a panic-kind entry from a recovered reason and a stack
// trace.
func PanicEntry(reason, backtrace string) LogEntry {
	return LogEntry{Kind: LogPanic, Reason: reason, Backtrace: backtrace}
}

// ErrorEntry builds an error-kind entry.
func ErrorEntry(reason string) LogEntry {
	return LogEntry{Kind: LogError, Reason: reason}
}

// WarnEntry builds a warn-kind entry.
func WarnEntry(reason string) LogEntry {
	return LogEntry{Kind: LogWarn, Reason: reason}
}
