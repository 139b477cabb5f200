package request

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
