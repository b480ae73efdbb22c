package verifier

import "errors"

// Transport implementations wrap these sentinels so the engine and its
// callers can classify failures without knowing the transport.
var (
	// ErrTransportUnreachable covers network and auth failures reaching the
	// canonical source, including acquisition timeouts.
	ErrTransportUnreachable = errors.New("transport unreachable")

	// ErrRefNotFound means the expected ref is genuinely absent from the
	// canonical source, not just from the local copy.
	ErrRefNotFound = errors.New("ref not found in canonical source")

	// ErrFilesystem covers failures removing or repopulating a local path.
	ErrFilesystem = errors.New("filesystem error")
)
