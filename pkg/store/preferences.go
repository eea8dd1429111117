package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/commandcenter/commandcenter/pkg/apperr"
)

// UserPreference is the first-class-but-optional per-user summary
// folded into the context bundle (spec.md §9 Open Question, resolved
// in DESIGN.md: minimal table, capped at 200 tokens in the bundle).
type UserPreference struct {
	UserID    string
	Summary   string
	UpdatedAt time.Time
}

// PreferenceStore persists user_preferences.
type PreferenceStore struct {
	db *sql.DB
}

// Get returns a user's preference summary, or a zero-value
// UserPreference if none has been recorded yet (never an error: an
// absent summary is a valid, empty contribution to the context bundle).
func (s *PreferenceStore) Get(ctx context.Context, userID string) (UserPreference, error) {
	var p UserPreference
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, summary, updated_at FROM user_preferences WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Summary, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return UserPreference{UserID: userID}, nil
	}
	if err != nil {
		return UserPreference{}, apperr.Wrap(apperr.KindInternal, "get user preference", err)
	}
	return p, nil
}

// Upsert sets a user's preference summary.
func (s *PreferenceStore) Upsert(ctx context.Context, userID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, summary) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET summary = EXCLUDED.summary, updated_at = now()`,
		userID, summary)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "upsert user preference", err)
	}
	return nil
}
