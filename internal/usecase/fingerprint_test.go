package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/leadbridge/internal/entity"
)

func TestFingerprintNormalizesIdentity(t *testing.T) {
	a := &entity.Lead{
		Email:     "Jane@Example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "(555) 123-4567",
	}
	b := &entity.Lead{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "555.123.4567",
	}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDiffersPerIdentity(t *testing.T) {
	a := &entity.Lead{Email: "jane@example.com"}
	b := &entity.Lead{Email: "john@example.com"}

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintIgnoresNonIdentityFields(t *testing.T) {
	a := &entity.Lead{Email: "jane@example.com", Message: "first message"}
	b := &entity.Lead{Email: "jane@example.com", Message: "a different message"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}
