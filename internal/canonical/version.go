package canonical

// Version constants reported by the CLI and the HTTP API.
const (
	// FormatVersion is the canonical request encoding version.
	FormatVersion = "1"

	// AppVersion is the fedunion release version.
	AppVersion = "0.1.0"
)
