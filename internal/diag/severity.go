package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevHidden is for diagnostics that carry machine-readable context only
	// (stale generated documents, cache provenance) and are hidden from
	// default output.
	SevHidden Severity = iota
	// SevInfo is for informational diagnostics.
	SevInfo
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevHidden:  "HIDDEN",
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}
