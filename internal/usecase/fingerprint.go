package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xavierca1/leadbridge/internal/entity"
)

// DuplicateWindow is how long an identical submission is suppressed.
const DuplicateWindow = 5 * time.Second

// FingerprintStore remembers fingerprints for the duplicate window.
// Implementations live in infra/cache.
type FingerprintStore interface {
	// Seen records fp and reports whether it was already present
	// within the window.
	Seen(ctx context.Context, fp string, window time.Duration) (bool, error)
}

// Fingerprint hashes the normalized identity fields of a lead. Two
// submissions with the same email, name and phone digits produce the
// same fingerprint no matter how the form ordered its fields.
func Fingerprint(lead *entity.Lead) string {
	email := strings.ToLower(strings.TrimSpace(lead.Email))
	name := strings.ToLower(strings.TrimSpace(lead.FirstName + " " + lead.LastName))
	phone := nonDigitRe.ReplaceAllString(lead.Phone, "")

	sum := sha256.Sum256([]byte(email + "|" + name + "|" + phone))
	return hex.EncodeToString(sum[:])
}
