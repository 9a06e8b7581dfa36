package core

// Identity is the verified {subject, email} pair carried by a token
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// RejectReason explains why a request was not authenticated
type RejectReason string

const (
	RejectMissingCredential    RejectReason = "missing credential"
	RejectInvalidCredential    RejectReason = "invalid credential"
	RejectIdentityMismatch     RejectReason = "identity mismatch"
	RejectDirectoryUnavailable RejectReason = "directory unavailable"
)

// AuthResult is the terminal state of the auth guard for one request.
// A zero Reason means AUTHENTICATED.
type AuthResult struct {
	Identity Identity
	Reason   RejectReason
}

// Authenticated builds an AUTHENTICATED result
func Authenticated(id Identity) AuthResult {
	return AuthResult{Identity: id}
}

// Rejected builds a REJECTED result
func Rejected(reason RejectReason) AuthResult {
	return AuthResult{Reason: reason}
}

// IsAuthenticated reports whether the guard accepted the request
func (r AuthResult) IsAuthenticated() bool {
	return r.Reason == ""
}

// Label is the metric/log label for the decision
func (r AuthResult) Label() string {
	if r.IsAuthenticated() {
		return "authenticated"
	}
	return string(r.Reason)
}
