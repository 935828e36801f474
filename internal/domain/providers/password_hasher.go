package providers

// PasswordHasher is a one-way credential digest
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
