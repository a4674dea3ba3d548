package auth

import "github.com/goalkit/goalkeeper/users"

// Require is the access control guard: given an authenticated principal and
// an operation's role floor, it permits or denies. An empty floor means any
// authenticated principal passes. The denial never reveals whether the
// target resource exists.
func Require(principal *Principal, floor users.Role) *Rejection {
	if principal == nil {
		return rejectUnauthenticated("authentication required")
	}
	if floor == "" {
		return nil
	}
	if !principal.Role.AtLeast(floor) {
		return &Rejection{Code: RejectionInsufficientRole, Message: "insufficient role"}
	}
	return nil
}
