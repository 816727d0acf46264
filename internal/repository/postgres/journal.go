package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

type journalRepository struct {
	BaseRepository
}

func NewJournalRepository(base BaseRepository) repository.JournalRepository {
	return &journalRepository{base}
}

func (r *journalRepository) Append(ctx context.Context, entry *model.MoodEntry) error {
	query := `
        INSERT INTO mood_entries (
            id, profile_id, entry_date, score, note,
            warning_signs, coping_strategies, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		entry.ID,
		entry.ProfileID,
		entry.EntryDate,
		entry.Score,
		entry.Note,
		pq.Array(entry.WarningSigns),
		pq.Array(entry.CopingStrategies),
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.StorageUnavailable("journal", err)
	}
	return nil
}

func (r *journalRepository) ListSince(ctx context.Context, profileID uuid.UUID, since time.Time) ([]*model.MoodEntry, error) {
	query := `
        SELECT id, profile_id, entry_date, score, note,
               warning_signs, coping_strategies, created_at
        FROM mood_entries
        WHERE profile_id = $1 AND created_at >= $2
        ORDER BY created_at ASC
    `
	return r.scanEntries(ctx, query, profileID, since)
}

func (r *journalRepository) ListRecent(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.MoodEntry, error) {
	query := `
        SELECT id, profile_id, entry_date, score, note,
               warning_signs, coping_strategies, created_at
        FROM (
            SELECT * FROM mood_entries
            WHERE profile_id = $1
            ORDER BY created_at DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC
    `
	return r.scanEntries(ctx, query, profileID, limit)
}

func (r *journalRepository) Latest(ctx context.Context, profileID uuid.UUID) (*model.MoodEntry, error) {
	query := `
        SELECT id, profile_id, entry_date, score, note,
               warning_signs, coping_strategies, created_at
        FROM mood_entries
        WHERE profile_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `

	row := r.GetDB().QueryRowxContext(ctx, query, profileID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("journal", err)
	}
	return entry, nil
}

func (r *journalRepository) Count(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := r.GetDB().GetContext(ctx, &count,
		`SELECT COUNT(*) FROM mood_entries WHERE profile_id = $1`, profileID)
	if err != nil {
		return 0, apperrors.StorageUnavailable("journal", err)
	}
	return count, nil
}

func (r *journalRepository) Delete(ctx context.Context, profileID, entryID uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM mood_entries WHERE id = $1 AND profile_id = $2`, entryID, profileID)
	if err != nil {
		return apperrors.StorageUnavailable("journal", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StorageUnavailable("journal", err)
	}
	if rows == 0 {
		return apperrors.NotFound("mood entry", nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*model.MoodEntry, error) {
	var entry model.MoodEntry
	var signs, strategies pq.StringArray
	if err := row.Scan(
		&entry.ID,
		&entry.ProfileID,
		&entry.EntryDate,
		&entry.Score,
		&entry.Note,
		&signs,
		&strategies,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	entry.WarningSigns = signs
	entry.CopingStrategies = strategies
	return &entry, nil
}

func (r *journalRepository) scanEntries(ctx context.Context, query string, args ...interface{}) ([]*model.MoodEntry, error) {
	rows, err := r.GetDB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.StorageUnavailable("journal", err)
	}
	defer rows.Close()

	var entries []*model.MoodEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.StorageUnavailable("journal", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageUnavailable("journal", err)
	}
	return entries, nil
}
