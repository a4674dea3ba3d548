package auth

// RejectionCode is the stable machine-readable reason a request was refused.
type RejectionCode string

const (
	// RejectionUnauthenticated covers every credential failure: missing,
	// unknown, expired-and-unrefreshable, or orphaned. The external message
	// never distinguishes these cases.
	RejectionUnauthenticated RejectionCode = "unauthenticated"

	// RejectionUnavailable means the identity provider could not be reached
	// during a required refresh. The caller may retry; the session survives.
	RejectionUnavailable RejectionCode = "temporarily_unavailable"

	// RejectionInsufficientRole means the caller is authenticated but below
	// the operation's role floor.
	RejectionInsufficientRole RejectionCode = "insufficient_role"
)

// Rejection is the tagged refusal result of authentication or authorization.
// It is deliberately not an error: an unauthenticated request is an expected,
// frequent outcome, not exceptional control flow.
type Rejection struct {
	Code    RejectionCode
	Message string
}

func rejectUnauthenticated(message string) *Rejection {
	return &Rejection{Code: RejectionUnauthenticated, Message: message}
}

func rejectUnavailable(message string) *Rejection {
	return &Rejection{Code: RejectionUnavailable, Message: message}
}
