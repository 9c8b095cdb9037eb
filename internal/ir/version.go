package ir

// Version constants for the rule-set format and engine.
const (
	// FormatVersion is the rule-set JSON format version.
	FormatVersion = "1"

	// EngineVersion is the reach engine version.
	EngineVersion = "0.1.0"
)
