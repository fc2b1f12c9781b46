package auth

import "golang.org/x/crypto/bcrypt"

// CredentialStore produces and checks password digests.
type CredentialStore interface {
	Hash(plain string) (string, error)
	Verify(digest, plain string) error
}

// BcryptCredentials is the bcrypt-backed CredentialStore.
type BcryptCredentials struct {
	Cost int
}

// NewBcryptCredentials clamps cost into the range bcrypt accepts.
func NewBcryptCredentials(cost int) BcryptCredentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptCredentials{Cost: cost}
}

func (b BcryptCredentials) Hash(plain string) (string, error) {
	return HashPassword(plain, b.Cost)
}

func (b BcryptCredentials) Verify(digest, plain string) error {
	return ComparePassword(digest, plain)
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
