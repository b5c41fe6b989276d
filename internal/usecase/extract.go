package usecase

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xavierca1/leadbridge/internal/entity"
)

// FieldPair is one raw (name, value) pair from a form submission.
// Names are whatever the site's form builder produces: plain labels,
// indexed placeholders, or base64-obfuscated labels.
type FieldPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RuleMatch records which extraction rule claimed which field. The
// trail is diagnostic output for troubleshooting odd form builders; it
// is never shown to visitors.
type RuleMatch struct {
	Field  string `json:"field"`
	Rule   string `json:"rule"`
	Target string `json:"target"`
}

var (
	emailShapeRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	emailNameRe   = regexp.MustCompile(`(?i)email|correo|e-mail`)
	addressNameRe = regexp.MustCompile(`(?i)address|street|city|state|zip|postal|country|location|home|house|residence|building|apartment|suite`)
	genericNameRe = regexp.MustCompile(`(?i)^(field|input|item|form[-_ ]?field)[-_\[]?\d+`)
	phoneNameRe   = regexp.MustCompile(`(?i)phone|tel|mobile`)
	phoneShapeRe  = regexp.MustCompile(`^[\d\s()+-]{7,}$`)
	firstNameRe   = regexp.MustCompile(`(?i)first|fname|firstname`)
	lastNameRe    = regexp.MustCompile(`(?i)last|lname|lastname|surname`)
	fullNameRe    = regexp.MustCompile(`(?i)^name$|fullname`)
	messageNameRe = regexp.MustCompile(`(?i)message|comment|inquiry|textarea`)
	bareAlphaRe   = regexp.MustCompile(`^[A-Za-z]+$`)
	nameTokenRe   = regexp.MustCompile(`^[\p{L}][\p{L} '.-]*$`)
	digitLetterRe = regexp.MustCompile(`\d+\s*[A-Za-z]`)
	streetWordRe  = regexp.MustCompile(`(?i)\b(street|st|ave|avenue|road|rd|lane|ln|drive|dr|blvd|boulevard|court|ct|way|circle|place|pl|hwy|highway)\b`)
	lblTokenRe    = regexp.MustCompile(`lbl-([A-Za-z0-9+/=_-]+)`)
	nonDigitRe    = regexp.MustCompile(`\D`)
)

// ExtractLead normalizes an arbitrary field set into a Lead. Rules run
// per field in a fixed order and the first matching rule claims the
// field; a claimed field never reaches later rules. Every slot is
// first-write-wins except address, which appends.
//
// The returned trail says which rule claimed which field. Extraction
// fails when no field yields a valid-shaped email.
func ExtractLead(fields []FieldPair) (*entity.Lead, []RuleMatch, error) {
	lead := &entity.Lead{}
	var trail []RuleMatch
	var addressParts []string

	claim := func(field, rule, target string) {
		trail = append(trail, RuleMatch{Field: field, Rule: rule, Target: target})
	}

	for _, f := range fields {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		name := strings.TrimSpace(f.Name)

		// 1. Email: by value shape or by field name. First match wins.
		if lead.Email == "" && (emailShapeRe.MatchString(value) || emailNameRe.MatchString(name)) {
			lead.Email = value
			claim(name, "email", "email")
			continue
		}

		// 2. Address by field name. Appends, never overwrites.
		if addressNameRe.MatchString(name) && !emailNameRe.MatchString(name) {
			addressParts = append(addressParts, value)
			claim(name, "address-name", "address")
			continue
		}

		// 3. Address heuristic for generically named fields
		// (field_1, input-3, ...).
		if genericNameRe.MatchString(name) && looksLikeAddress(value) {
			addressParts = append(addressParts, value)
			claim(name, "address-heuristic", "address")
			continue
		}

		// 4. Phone: by field name or loose value shape.
		if lead.Phone == "" && (phoneNameRe.MatchString(name) || phoneShapeRe.MatchString(value)) {
			lead.Phone = value
			claim(name, "phone", "phone")
			continue
		}

		// 5. First / last name by field name.
		if lead.FirstName == "" && firstNameRe.MatchString(name) {
			lead.FirstName = value
			claim(name, "first-name", "first_name")
			continue
		}
		if lead.LastName == "" && lastNameRe.MatchString(name) {
			lead.LastName = value
			claim(name, "last-name", "last_name")
			continue
		}

		// 6. Base64-obfuscated label ("...lbl-<token>..."). Decode
		// failures are skipped, not fatal.
		if label, ok := decodeFieldLabel(name); ok {
			if target := applyDecodedLabel(lead, &addressParts, label, value); target != "" {
				claim(name, "base64-label", target)
				continue
			}
		}

		// 7. Combined full name: split on the first space.
		if lead.FirstName == "" && fullNameRe.MatchString(name) {
			first, last := splitFullName(value)
			lead.FirstName = first
			if lead.LastName == "" && last != "" {
				lead.LastName = last
			}
			claim(name, "full-name", "first_name")
			continue
		}

		// 8. Message.
		if lead.Message == "" && messageNameRe.MatchString(name) {
			lead.Message = value
			claim(name, "message", "message")
			continue
		}

		// 9. Fallback: a short alphabetic token becomes the first name.
		if lead.FirstName == "" && isNameToken(value) && !emailShapeRe.MatchString(value) {
			lead.FirstName = value
			claim(name, "fallback-name", "first_name")
			continue
		}
	}

	if len(addressParts) > 0 {
		lead.Address = strings.Join(addressParts, ", ")
	}

	if lead.Email == "" || !emailShapeRe.MatchString(lead.Email) {
		return nil, trail, ErrNoEmail
	}
	return lead, trail, nil
}

// looksLikeAddress decides whether a generically named field carries
// an address: not an email, not a bare phone number, not a single
// alphabetic word, and long or street-shaped.
func looksLikeAddress(value string) bool {
	if emailShapeRe.MatchString(value) || phoneShapeRe.MatchString(value) || bareAlphaRe.MatchString(value) {
		return false
	}
	return len(value) > 10 || digitLetterRe.MatchString(value) || streetWordRe.MatchString(value)
}

// decodeFieldLabel pulls the base64 token following "lbl-" out of a
// field name and decodes it to the human-readable label.
func decodeFieldLabel(name string) (string, bool) {
	m := lblTokenRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	token := m[1]
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(token)
	}
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	return strings.ToLower(string(decoded)), true
}

func applyDecodedLabel(lead *entity.Lead, addressParts *[]string, label, value string) string {
	switch {
	case strings.Contains(label, "last"):
		if lead.LastName == "" {
			lead.LastName = value
			return "last_name"
		}
	case strings.Contains(label, "first") || strings.Contains(label, "name"):
		if lead.FirstName == "" {
			lead.FirstName = value
			return "first_name"
		}
	case labelIsAddress(label) && !strings.Contains(label, "email"):
		*addressParts = append(*addressParts, value)
		return "address"
	case strings.Contains(label, "phone"):
		if lead.Phone == "" {
			lead.Phone = value
			return "phone"
		}
	case strings.Contains(label, "message"):
		if lead.Message == "" {
			lead.Message = value
			return "message"
		}
	}
	return ""
}

func labelIsAddress(label string) bool {
	for _, kw := range []string{"address", "house", "residence", "building", "apartment", "suite"} {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

func splitFullName(value string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

// isNameToken accepts short alphabetic tokens, including accented
// letters and inner spaces.
func isNameToken(value string) bool {
	n := utf8.RuneCountInString(value)
	return n >= 2 && n <= 30 && nameTokenRe.MatchString(value)
}
