package repoargs

type CreateCredential struct {
	Username      string
	PasswordHash  string
	AccountNumber string
}
