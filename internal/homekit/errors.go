package homekit

import "errors"

// Domain errors for the homekit package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, homekit.ErrStorageCorrupt) {
//	    // report, do not attempt repair
//	}
var (
	// ErrStorageUnavailable indicates the bridge state file is missing or
	// unreadable. The file is owned by the bridge and is never created here.
	ErrStorageUnavailable = errors.New("homekit: state file unavailable")

	// ErrStorageCorrupt indicates the state file exists but does not have
	// the expected document shape. It is reported, never auto-repaired.
	ErrStorageCorrupt = errors.New("homekit: state file corrupt")

	// ErrStorageWriteFailed indicates the backup or atomic replace failed.
	// The original file is untouched and the backup, if taken, remains.
	ErrStorageWriteFailed = errors.New("homekit: state file write failed")

	// ErrReloadFailed indicates the bridge reload request could not be
	// delivered after a successful write. On-disk state remains correct.
	ErrReloadFailed = errors.New("homekit: bridge reload failed")
)
