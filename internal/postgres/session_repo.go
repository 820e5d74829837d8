package postgres

import (
	"context"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `session_id, user_id, name, session_code, is_active, is_display_hidden,
       temperature, rhythm_type, beats_per_minute, noise_level, bp, spo2, etco2, rr,
       created_at, updated_at`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.Code, &s.IsActive, &s.IsDisplayHidden,
		&s.Temperature, &s.RhythmType, &s.BeatsPerMinute, &s.NoiseLevel,
		&s.BP, &s.SpO2, &s.EtCO2, &s.RR,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (user_id, name, session_code, is_active, is_display_hidden,
		                      temperature, rhythm_type, beats_per_minute, noise_level,
		                      bp, spo2, etco2, rr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING session_id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		s.OwnerID, s.Name, s.Code, s.IsActive, s.IsDisplayHidden,
		s.Temperature, s.RhythmType, s.BeatsPerMinute, s.NoiseLevel,
		s.BP, s.SpO2, s.EtCO2, s.RR,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id=$1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_code=$1`
	return scanSession(r.db.QueryRow(ctx, query, code))
}

// ListByOwner возвращает сессии владельца с курсорной пагинацией.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID int64, limit int, cursorStr string) ([]domain.Session, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2
		       OR (created_at = $2 AND session_id < $3))
		ORDER BY created_at DESC, session_id DESC
		LIMIT $4`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, ownerID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, "", err
		}
		sessions = append(sessions, *s)
	}

	var nextCursor string
	if len(sessions) == limit {
		last := sessions[len(sessions)-1]
		nextCursor, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return sessions, nextCursor, rows.Err()
}

// ListActiveCodes перечисляет коды всех активных сессий; используется sweeper-ом.
func (r *SessionRepository) ListActiveCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT session_code FROM sessions WHERE is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	query := `
		UPDATE sessions
		SET name=$2, is_active=$3, is_display_hidden=$4,
		    temperature=$5, rhythm_type=$6, beats_per_minute=$7, noise_level=$8,
		    bp=$9, spo2=$10, etco2=$11, rr=$12, updated_at=now()
		WHERE session_id=$1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		s.ID, s.Name, s.IsActive, s.IsDisplayHidden,
		s.Temperature, s.RhythmType, s.BeatsPerMinute, s.NoiseLevel,
		s.BP, s.SpO2, s.EtCO2, s.RR,
	).Scan(&s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return domain.ErrSessionNotFound
	}
	return err
}

func (r *SessionRepository) SetActive(ctx context.Context, code string, active bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE sessions SET is_active=$2, updated_at=now() WHERE session_code=$1`,
		code, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_id=$1`, id)
	return err
}
