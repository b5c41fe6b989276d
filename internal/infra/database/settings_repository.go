package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/xavierca1/leadbridge/internal/entity"
)

type SettingsRepository struct {
	DB *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{DB: db}
}

// Load returns the single settings row, or sane defaults when the site
// was never configured.
func (r *SettingsRepository) Load(ctx context.Context) (*entity.Settings, error) {
	query := `
		SELECT source, inquiry_type, selected_tags, assigned_user_id, pixel_id
		FROM fub_settings
		WHERE id = 1
	`

	var s entity.Settings
	var inquiry string
	var tags []string
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&s.Source, &inquiry, pq.Array(&tags), &s.AssignedUserID, &s.PixelID,
	)
	if err == sql.ErrNoRows {
		return &entity.Settings{InquiryType: entity.InquiryGeneral}, nil
	}
	if err != nil {
		return nil, err
	}
	s.InquiryType = entity.InquiryType(inquiry)
	s.SelectedTags = tags
	return &s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *entity.Settings) error {
	query := `
		INSERT INTO fub_settings (id, source, inquiry_type, selected_tags, assigned_user_id, pixel_id)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			source = EXCLUDED.source,
			inquiry_type = EXCLUDED.inquiry_type,
			selected_tags = EXCLUDED.selected_tags,
			assigned_user_id = EXCLUDED.assigned_user_id,
			pixel_id = EXCLUDED.pixel_id
	`
	_, err := r.DB.ExecContext(ctx, query,
		s.Source, string(s.InquiryType), pq.Array(s.SelectedTags), s.AssignedUserID, s.PixelID,
	)
	return err
}
