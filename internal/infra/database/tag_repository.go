package database

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/xavierca1/leadbridge/internal/entity"
)

type TagRepository struct {
	DB *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{DB: db}
}

// ReplaceAll deactivates the whole mirror and reinserts the remote
// set, in one transaction so a reader never sees a half-synced mirror.
func (r *TagRepository) ReplaceAll(ctx context.Context, tags []entity.Tag) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE fub_tags SET active = FALSE, updated_at = NOW()`); err != nil {
		return err
	}

	upsert := `
		INSERT INTO fub_tags (name, active, updated_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (name)
		DO UPDATE SET active = TRUE, updated_at = NOW()
	`
	for _, t := range tags {
		if _, err := tx.ExecContext(ctx, upsert, t.Name); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *TagRepository) ListActive(ctx context.Context) ([]entity.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, active FROM fub_tags WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []entity.Tag
	for rows.Next() {
		var id int64
		var t entity.Tag
		if err := rows.Scan(&id, &t.Name, &t.Active); err != nil {
			return nil, err
		}
		t.ID = strconv.FormatInt(id, 10)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
