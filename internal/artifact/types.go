package artifact

import (
	"time"
)

// LatestVersion is the version sentinel meaning "track upstream".
const LatestVersion = "latest"

const (
	// CheckInterval is the delay before a "latest" artifact is re-checked
	// after a successful lookup or install.
	CheckInterval = 7 * 24 * time.Hour
	// RetryInterval is the delay after a failed lookup or install.
	RetryInterval = 6 * time.Hour
	// ResolveTimeout bounds a single remote version/checksum lookup.
	ResolveTimeout = 10 * time.Second
	// MetadataFile is the record file name inside the artifact directory.
	MetadataFile = "metadata.json"
)

// Record is the persisted state of the artifact directory.
type Record struct {
	// NextCheckAt is the unix time after which a remote lookup is allowed.
	NextCheckAt int64 `json:"timestamp"`
	// Version of the installed artifact.
	Version string `json:"version"`
	// Checksum is the lowercase hex digest of the installed file.
	Checksum string `json:"checksum,omitempty"`
}

// NextCheck returns NextCheckAt as a time.Time.
func (r Record) NextCheck() time.Time {
	return time.Unix(r.NextCheckAt, 0)
}

// Resolution is a version (and, when known, checksum) selected for install.
type Resolution struct {
	Version  string
	Checksum string
}

// State of the artifact in the install cycle.
type State int

const (
	StateAbsent State = iota
	StateDownloading
	StateVerifying
	StateInstalled
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateDownloading:
		return "downloading"
	case StateVerifying:
		return "verifying"
	case StateInstalled:
		return "installed"
	default:
		return "unknown"
	}
}
