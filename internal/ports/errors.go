package ports

import (
	"errors"
	"strings"
)

// ErrStorageBusy marks transient storage contention (sqlite lock/busy).
// Writers that can tolerate loss retry with bounded backoff.
var ErrStorageBusy = errors.New("storage busy")

// IsStorageBusy reports whether err looks like transient contention,
// either the sentinel or the sqlite driver's busy/locked messages.
func IsStorageBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStorageBusy) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy") || strings.Contains(msg, "sqlite_busy")
}
