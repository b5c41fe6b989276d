package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/leadbridge/internal/entity"
	"github.com/xavierca1/leadbridge/internal/infra/integration/backend"
	"github.com/xavierca1/leadbridge/internal/infra/integration/fub"
)

// IntegrationTag is always attached so FUB-side automations can key on
// leads coming from this integration.
const IntegrationTag = "WordPress Lead"

const responseSnippetMax = 500

// Connection exposes the connected FUB account, or
// oauth.ErrNotConnected.
type Connection interface {
	ConnectedAccount(ctx context.Context) (string, error)
}

// SubscriptionGate is consulted fresh before every CRM write. No
// caching: license state changes out-of-band.
type SubscriptionGate interface {
	CheckSubscription(ctx context.Context, accountID string) (*backend.SubscriptionCheckResult, error)
}

type EventSender interface {
	CreateEvent(ctx context.Context, input fub.EventInput) error
}

type DeliverLeadUseCase struct {
	Conn Connection
	Gate SubscriptionGate
	FUB  EventSender
	Repo entity.DeliveryRepositoryInterface
}

func NewDeliverLeadUseCase(conn Connection, gate SubscriptionGate, crm EventSender, repo entity.DeliveryRepositoryInterface) *DeliverLeadUseCase {
	return &DeliverLeadUseCase{Conn: conn, Gate: gate, FUB: crm, Repo: repo}
}

// Execute enriches the lead with the site settings, attempts the CRM
// send, and persists the outcome either way. A failed send is returned
// as a non-nil error alongside a valid record; only a *PersistenceError
// means the whole operation failed.
func (uc *DeliverLeadUseCase) Execute(ctx context.Context, lead *entity.Lead, settings *entity.Settings) (*entity.DeliveryRecord, error) {
	if lead == nil || lead.Email == "" {
		return nil, ErrNoEmail
	}

	applySettings(lead, settings)

	sendErr := uc.Send(ctx, lead)

	now := time.Now()
	rec := &entity.DeliveryRecord{
		ID:        uuid.New().String(),
		Lead:      *lead,
		Status:    entity.StatusSent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sendErr != nil {
		rec.Status = entity.StatusFailed
		rec.LastResponse = snippet(sendErr.Error())
	} else {
		rec.LastResponse = "delivered"
	}

	if err := uc.Repo.Create(ctx, rec); err != nil {
		// Nothing to retry from. Fatal.
		return nil, &PersistenceError{Err: err}
	}
	return rec, sendErr
}

// Send performs the gated CRM call without touching persistence. The
// retry worker reuses it to redrive stored leads.
func (uc *DeliverLeadUseCase) Send(ctx context.Context, lead *entity.Lead) error {
	accountID, err := uc.Conn.ConnectedAccount(ctx)
	if err != nil {
		return err
	}

	check, err := uc.Gate.CheckSubscription(ctx, accountID)
	if err != nil {
		// Backend unreachable: fail closed, block the write. The
		// record stays retryable.
		return err
	}
	if !check.HasActive {
		return &SubscriptionInactiveError{Status: check.Status}
	}

	return uc.FUB.CreateEvent(ctx, BuildEvent(lead))
}

// BuildEvent maps a lead onto the FUB event payload. The stage is set
// explicitly and no event type is sent, so FUB-side automations keyed
// on event type are left alone.
func BuildEvent(lead *entity.Lead) fub.EventInput {
	person := fub.Person{
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Stage:     lead.InquiryType.Stage(),
		Emails:    []fub.Email{{Value: lead.Email}},
		Tags:      buildTags(lead),
	}
	if lead.Phone != "" {
		person.Phones = []fub.Phone{{Value: lead.Phone}}
	}
	if lead.Address != "" {
		person.Addresses = []fub.Address{{Street: lead.Address, IsPrimary: true}}
	}
	if lead.AssignedUserID != "" {
		person.AssignedUserID = lead.AssignedUserID
	}

	return fub.EventInput{
		Source:  lead.Source,
		Message: lead.Message,
		Person:  person,
	}
}

func buildTags(lead *entity.Lead) []string {
	candidates := make([]string, 0, len(lead.Tags)+2)
	candidates = append(candidates, IntegrationTag)
	if lead.Source != "" && lead.Source != IntegrationTag {
		candidates = append(candidates, lead.Source)
	}
	candidates = append(candidates, lead.Tags...)

	seen := make(map[string]bool, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, t := range candidates {
		t = trimTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

func trimTag(t string) string {
	return strings.TrimSpace(t)
}

func applySettings(lead *entity.Lead, settings *entity.Settings) {
	if settings == nil {
		if lead.InquiryType == "" {
			lead.InquiryType = entity.InquiryGeneral
		}
		return
	}
	if lead.Source == "" {
		lead.Source = settings.Source
	}
	if lead.InquiryType == "" {
		lead.InquiryType = settings.InquiryType
	}
	if lead.InquiryType == "" {
		lead.InquiryType = entity.InquiryGeneral
	}
	lead.Tags = append(lead.Tags, settings.SelectedTags...)
	if lead.AssignedUserID == "" {
		lead.AssignedUserID = settings.AssignedUserID
	}
}

func snippet(s string) string {
	if len(s) > responseSnippetMax {
		return s[:responseSnippetMax]
	}
	return s
}
