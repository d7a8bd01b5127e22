package models

// Actor is the authenticated identity performing an operation.
// It is produced by the identity collaborator (session lookup) and passed
// explicitly into every service call.
type Actor struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Identity is what the sign-in collaborator knows about a person before a user row exists
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
