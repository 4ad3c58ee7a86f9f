package utils

import "golang.org/x/crypto/bcrypt"

// hashCost stays at the bcrypt default; raise it here if login latency
// allows.
const hashCost = bcrypt.DefaultCost

// HashPassword produces a bcrypt hash for storing in team_members.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether a plaintext password matches a stored
// hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
