package domain

import "time"

// TokenPair is the credential pair issued by the backend. Access is the
// short-lived decodable token, Refresh is long-lived and only exchanged for
// new pairs.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Identity is the claim set decoded from an access token.
type Identity struct {
	Subject   string
	ExpiresAt time.Time
}

// Profile is the user-facing account record fetched after authentication.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration holds the signup form fields.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}
