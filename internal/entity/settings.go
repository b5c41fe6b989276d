package entity

import "context"

// Settings is the site-wide delivery configuration. It is loaded once
// per request and passed explicitly to the delivery engine; nothing
// reads it through globals.
type Settings struct {
	Source         string      `json:"source"`
	InquiryType    InquiryType `json:"inquiry_type"`
	SelectedTags   []string    `json:"selected_tags"`
	AssignedUserID string      `json:"assigned_user_id,omitempty"`
	PixelID        string      `json:"pixel_id,omitempty"`
}

type SettingsRepositoryInterface interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
