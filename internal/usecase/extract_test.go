package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLeadBasicContactForm(t *testing.T) {
	fields := []FieldPair{
		{Name: "your-email", Value: "jane@example.com"},
		{Name: "first_name", Value: "Jane"},
		{Name: "last_name", Value: "Doe"},
		{Name: "phone", Value: "(555) 123-4567"},
		{Name: "message", Value: "I'd like to see the listing on Oak St."},
	}

	lead, trail, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "jane@example.com", lead.Email)
	assert.Equal(t, "Jane", lead.FirstName)
	assert.Equal(t, "Doe", lead.LastName)
	assert.Equal(t, "(555) 123-4567", lead.Phone)
	assert.Equal(t, "I'd like to see the listing on Oak St.", lead.Message)
	assert.Len(t, trail, 5)
}

func TestExtractLeadEmailByValueShapeAnyFieldName(t *testing.T) {
	fields := []FieldPair{
		{Name: "wpforms[fields][27]", Value: "buyer@homes.net"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "buyer@homes.net", lead.Email)
}

func TestExtractLeadNoEmailFails(t *testing.T) {
	fields := []FieldPair{
		{Name: "message", Value: "call me back please"},
		{Name: "phone", Value: "5551234567"},
	}

	lead, _, err := ExtractLead(fields)

	assert.Nil(t, lead)
	assert.ErrorIs(t, err, ErrNoEmail)
}

func TestExtractLeadEmailNamedFieldWithGarbageValueFails(t *testing.T) {
	// The email field claimed a value that is not email-shaped; the
	// submission must be rejected, not delivered with a junk email.
	fields := []FieldPair{
		{Name: "email", Value: "not an email"},
		{Name: "first_name", Value: "Jane"},
	}

	lead, _, err := ExtractLead(fields)

	assert.Nil(t, lead)
	assert.ErrorIs(t, err, ErrNoEmail)
}

func TestExtractLeadFirstEmailWins(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "first@example.com"},
		{Name: "backup_email", Value: "second@example.com"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "first@example.com", lead.Email)
}

func TestExtractLeadAddressPartsConcatenate(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "seller@example.com"},
		{Name: "street_address", Value: "123 Main St"},
		{Name: "city", Value: "Springfield"},
		{Name: "zip", Value: "62704"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "123 Main St, Springfield, 62704", lead.Address)
}

func TestExtractLeadGenericFieldAddressHeuristic(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "seller@example.com"},
		{Name: "field_3", Value: "456 Elm Avenue"},
		{Name: "field_4", Value: "Maria"}, // bare word, not an address
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "456 Elm Avenue", lead.Address)
	assert.Equal(t, "Maria", lead.FirstName)
}

func TestExtractLeadBase64Label(t *testing.T) {
	// srfm-lbl-TGFzdCBOYW1l → "Last Name"
	fields := []FieldPair{
		{Name: "email", Value: "jane@example.com"},
		{Name: "srfm-lbl-TGFzdCBOYW1l", Value: "Smith"},
	}

	lead, trail, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "Smith", lead.LastName)
	assert.Empty(t, lead.FirstName)

	var rule string
	for _, m := range trail {
		if m.Target == "last_name" {
			rule = m.Rule
		}
	}
	assert.Equal(t, "base64-label", rule)
}

func TestExtractLeadBase64LabelDecodeFailureSkipped(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "jane@example.com"},
		{Name: "srfm-lbl-!!!notbase64!!!", Value: "whatever"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	// The bad label falls through to the fallback name rule.
	assert.Equal(t, "whatever", lead.FirstName)
}

func TestExtractLeadFullNameSplit(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "jane@example.com"},
		{Name: "name", Value: "Jane Marie Doe"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "Jane", lead.FirstName)
	assert.Equal(t, "Marie Doe", lead.LastName)
}

func TestExtractLeadFullNameDoesNotOverwriteLastName(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "jane@example.com"},
		{Name: "last_name", Value: "Smith"},
		{Name: "name", Value: "Jane Doe"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "Jane", lead.FirstName)
	assert.Equal(t, "Smith", lead.LastName)
}

func TestExtractLeadPhoneByShape(t *testing.T) {
	fields := []FieldPair{
		{Name: "email", Value: "jane@example.com"},
		{Name: "contact", Value: "+1 555 123 4567"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "+1 555 123 4567", lead.Phone)
}

func TestExtractLeadEmptyValuesIgnored(t *testing.T) {
	fields := []FieldPair{
		{Name: "first_name", Value: "   "},
		{Name: "email", Value: "jane@example.com"},
		{Name: "fname", Value: "Jane"},
	}

	lead, _, err := ExtractLead(fields)

	assert.NoError(t, err)
	assert.Equal(t, "Jane", lead.FirstName)
}
