package usecase

import (
	"context"
	"errors"
	"log"

	"github.com/xavierca1/leadbridge/internal/entity"
)

type LeadDeliverer interface {
	Execute(ctx context.Context, lead *entity.Lead, settings *entity.Settings) (*entity.DeliveryRecord, error)
}

type SubmitLeadInput struct {
	FormType string      `json:"form_type"`
	Fields   []FieldPair `json:"fields"`
}

// SubmitLeadOutput mirrors the wire contract: Success stays true even
// when the CRM send failed, as long as the lead was persisted locally.
// FUBError carries the soft-failure diagnostic for the operator.
type SubmitLeadOutput struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message,omitempty"`
	LeadData     *entity.Lead `json:"lead_data,omitempty"`
	TriggerPixel string       `json:"trigger_pixel,omitempty"`
	FUBError     string       `json:"fub_error,omitempty"`
	Duplicate    bool         `json:"duplicate,omitempty"`
}

type SubmitLeadUseCase struct {
	Deliver      LeadDeliverer
	Settings     entity.SettingsRepositoryInterface
	Fingerprints FingerprintStore
}

func NewSubmitLeadUseCase(deliver LeadDeliverer, settings entity.SettingsRepositoryInterface, fingerprints FingerprintStore) *SubmitLeadUseCase {
	return &SubmitLeadUseCase{
		Deliver:      deliver,
		Settings:     settings,
		Fingerprints: fingerprints,
	}
}

// Execute runs the whole submission pipeline: extract, dedupe, gate,
// deliver, persist. A returned error means the request itself failed
// (settings unreadable or persistence down); everything else is
// reported inside the output.
func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	lead, trail, err := ExtractLead(input.Fields)
	if err != nil {
		log.Printf("submission rejected: %v (rules matched: %d)", err, len(trail))
		return &SubmitLeadOutput{Success: false, Message: "could not process submission"}, nil
	}

	if uc.Fingerprints != nil {
		dup, ferr := uc.Fingerprints.Seen(ctx, Fingerprint(lead), DuplicateWindow)
		if ferr != nil {
			// The window guard is best effort; a broken store must not
			// drop leads.
			log.Printf("⚠️ fingerprint store unavailable: %v", ferr)
		} else if dup {
			log.Printf("duplicate submission suppressed for %s", lead.Email)
			return &SubmitLeadOutput{Success: true, Duplicate: true}, nil
		}
	}

	settings, err := uc.Settings.Load(ctx)
	if err != nil {
		return nil, &TechnicalError{Code: "SETTINGS_ERROR", Message: "failed to load site settings: " + err.Error()}
	}

	// The submission's form type can pin the inquiry type for this
	// lead; otherwise the site default applies.
	if it := matchInquiryType(input.FormType); it != "" {
		lead.InquiryType = it
	}

	rec, sendErr := uc.Deliver.Execute(ctx, lead, settings)
	if sendErr != nil {
		var pe *PersistenceError
		if errors.As(sendErr, &pe) {
			return nil, sendErr
		}
	}

	out := &SubmitLeadOutput{
		Success:      true,
		LeadData:     &rec.Lead,
		TriggerPixel: settings.PixelID,
	}
	if sendErr != nil {
		out.FUBError = sendErr.Error()
	}
	return out, nil
}

func matchInquiryType(formType string) entity.InquiryType {
	switch entity.InquiryType(formType) {
	case entity.InquiryGeneral, entity.InquiryRegistration, entity.InquiryProperty, entity.InquirySeller:
		return entity.InquiryType(formType)
	}
	return ""
}
