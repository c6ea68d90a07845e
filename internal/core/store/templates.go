package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TemplateRecord describes a stored reply-template override.
type TemplateRecord struct {
	Key       string
	Template  string
	UpdatedAt time.Time
}

// UpsertTemplate creates or updates a reply-template override.
func (s *Store) UpsertTemplate(ctx context.Context, key, template string, updatedAt time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("template key is required")
	}
	if strings.TrimSpace(template) == "" {
		return errors.New("template body is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO reply_templates (key, template, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			template = excluded.template,
			updated_at = excluded.updated_at
	`, key, template, updatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store template: %w", err)
	}

	return nil
}

// GetTemplate returns a stored template override by key, or nil when absent.
func (s *Store) GetTemplate(ctx context.Context, key string) (*TemplateRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("template key is required")
	}

	var (
		template  string
		updatedAt sql.NullInt64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT template, updated_at
		FROM reply_templates
		WHERE key = ?
	`, key)

	if err := row.Scan(&template, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch template: %w", err)
	}

	record := &TemplateRecord{
		Key:      key,
		Template: template,
	}
	if updatedAt.Valid {
		record.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
	}

	return record, nil
}

// ListTemplates returns all stored template overrides ordered by key.
func (s *Store) ListTemplates(ctx context.Context) ([]TemplateRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT key, template, updated_at
		FROM reply_templates
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []TemplateRecord
	for rows.Next() {
		var (
			key       string
			template  string
			updatedAt sql.NullInt64
		)
		if err := rows.Scan(&key, &template, &updatedAt); err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}

		record := TemplateRecord{
			Key:      key,
			Template: template,
		}
		if updatedAt.Valid {
			record.UpdatedAt = time.Unix(updatedAt.Int64, 0).UTC()
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	return records, nil
}

// DeleteTemplate removes a stored override, reverting the key to its default.
func (s *Store) DeleteTemplate(ctx context.Context, key string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("template key is required")
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM reply_templates WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	return nil
}
