package cryptox

// Argon2Hasher is the production hasher: plain function calls wrapped in a
// value so services can take an interface and tests can substitute a cheap
// fake.
type Argon2Hasher struct{}

func (Argon2Hasher) Hash(password string) (string, error) {
	return HashPassword(password)
}

func (Argon2Hasher) Verify(encoded, candidate string) (bool, error) {
	return VerifyPassword(encoded, candidate)
}
