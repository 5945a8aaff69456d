package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const closerColumns = `id, display_name, is_active, categories, specializations`

const templateColumns = `id, closer_id, weekday, category, start_time, capacity_policy, timezone`

type closerRow struct {
	ID              uuid.UUID
	DisplayName     string
	IsActive        bool
	Categories      []string
	Specializations []byte
}

func (r closerRow) toDomain() (domain.Closer, error) {
	closer := domain.Closer{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Active:      r.IsActive,
		Categories:  make([]domain.Category, 0, len(r.Categories)),
	}
	for _, raw := range r.Categories {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return domain.Closer{}, err
		}
		closer.Categories = append(closer.Categories, category)
	}
	if len(r.Specializations) > 0 {
		if err := json.Unmarshal(r.Specializations, &closer.Specializations); err != nil {
			return domain.Closer{}, fmt.Errorf("failed to decode specializations: %w", err)
		}
	}
	return closer, nil
}

func scanCloser(row pgx.Row) (domain.Closer, error) {
	var r closerRow
	if err := row.Scan(&r.ID, &r.DisplayName, &r.IsActive, &r.Categories, &r.Specializations); err != nil {
		return domain.Closer{}, err
	}
	return r.toDomain()
}

// GetCloser loads a closer by id.
func (r *Repository) GetCloser(ctx context.Context, id uuid.UUID) (domain.Closer, error) {
	query := `SELECT ` + closerColumns + ` FROM closers WHERE id = $1`

	closer, err := scanCloser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Closer{}, apperr.NotFound(closerNotFoundMsg)
		}
		return domain.Closer{}, fmt.Errorf("failed to get closer: %w", err)
	}
	return closer, nil
}

// ListClosers returns every closer ordered by id.
func (r *Repository) ListClosers(ctx context.Context) ([]domain.Closer, error) {
	query := `SELECT ` + closerColumns + ` FROM closers ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list closers: %w", err)
	}
	defer rows.Close()

	closers := make([]domain.Closer, 0)
	for rows.Next() {
		closer, err := scanCloser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closer: %w", err)
		}
		closers = append(closers, closer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate closers: %w", err)
	}
	return closers, nil
}

// ListTemplates returns a closer's templates for a weekday and category ordered by start time.
func (r *Repository) ListTemplates(ctx context.Context, closerID uuid.UUID, weekday time.Weekday, category domain.Category) ([]domain.SlotTemplate, error) {
	query := `SELECT ` + templateColumns + `
		FROM slot_templates
		WHERE closer_id = $1 AND weekday = $2 AND category = $3
		ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, query, closerID, int16(weekday), category.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list slot templates: %w", err)
	}
	defer rows.Close()

	templates := make([]domain.SlotTemplate, 0)
	for rows.Next() {
		var (
			t         domain.SlotTemplate
			weekdayDB int16
			catDB     string
			startTime string
			policy    string
		)
		if err := rows.Scan(&t.ID, &t.CloserID, &weekdayDB, &catDB, &startTime, &policy, &t.Timezone); err != nil {
			return nil, fmt.Errorf("failed to scan slot template: %w", err)
		}
		t.Weekday = time.Weekday(weekdayDB)
		if t.Category, err = domain.ParseCategory(catDB); err != nil {
			return nil, err
		}
		if t.StartTime, err = domain.ParseClockTime(startTime); err != nil {
			return nil, err
		}
		if t.Policy, err = domain.PolicyFor(domain.PolicyKind(policy)); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slot templates: %w", err)
	}
	return templates, nil
}

// UpsertCloser inserts or updates a closer.
func (r *Repository) UpsertCloser(ctx context.Context, closer domain.Closer) error {
	categories := make([]string, 0, len(closer.Categories))
	for _, c := range closer.Categories {
		categories = append(categories, c.String())
	}
	specializations, err := json.Marshal(closer.Specializations)
	if err != nil {
		return fmt.Errorf("failed to encode specializations: %w", err)
	}

	query := `
		INSERT INTO closers (id, display_name, is_active, categories, specializations)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			is_active = EXCLUDED.is_active,
			categories = EXCLUDED.categories,
			specializations = EXCLUDED.specializations,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, closer.ID, closer.DisplayName, closer.Active, categories, specializations); err != nil {
		return fmt.Errorf("failed to upsert closer: %w", err)
	}
	return nil
}

// ReplaceTemplates swaps all templates of a closer in one transaction.
// Existing bookings keep their policy snapshot.
func (r *Repository) ReplaceTemplates(ctx context.Context, closerID uuid.UUID, templates []domain.SlotTemplate) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM slot_templates WHERE closer_id = $1`, closerID); err != nil {
			return fmt.Errorf("failed to clear slot templates: %w", err)
		}

		insert := `INSERT INTO slot_templates (` + templateColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for _, t := range templates {
			id := t.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			if _, err := tx.Exec(ctx, insert, id, closerID, int16(t.Weekday), t.Category.String(),
				t.StartTime.String(), string(t.Policy.Kind()), t.Timezone); err != nil {
				return fmt.Errorf("failed to insert slot template: %w", err)
			}
		}
		return nil
	})
}
