package model

// SessionStatus represents the lifecycle state of a fetch session
type SessionStatus string

const (
	// StatusIdle means no session is active
	StatusIdle SessionStatus = "Idle"

	// StatusRunning means the fetcher subprocess is downloading
	StatusRunning SessionStatus = "Running"

	// StatusFinalizing means downloaded files are being remuxed or re-encoded
	StatusFinalizing SessionStatus = "Finalizing"

	// StatusCompleted means the session finished successfully
	StatusCompleted SessionStatus = "Completed"

	// StatusFailed means the session ended with an error
	StatusFailed SessionStatus = "Failed"

	// StatusCancelled means the session was cancelled by the user
	StatusCancelled SessionStatus = "Cancelled"
)

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	return string(s)
}

// IsActive returns true if a session is currently in flight
func (s SessionStatus) IsActive() bool {
	return s == StatusRunning || s == StatusFinalizing
}

// IsTerminal returns true if the session reached a final state
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
