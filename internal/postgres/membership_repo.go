package postgres

import (
	"context"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MembershipRepository struct {
	db *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Upsert активирует членство (создаёт строку при первом join).
// Повторный join той же пары не создаёт дубликат — уникальный индекс
// (student_id, session_id) + ON CONFLICT.
func (r *MembershipRepository) Upsert(ctx context.Context, studentID, sessionID int64) (*domain.Membership, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO student_sessions (student_id, session_id, active, joined_at)
		VALUES ($1, $2, TRUE, now())
		ON CONFLICT (student_id, session_id)
		DO UPDATE SET active = TRUE, joined_at = now()
		RETURNING student_id, session_id, active, joined_at
	`, studentID, sessionID)

	var m domain.Membership
	if err := row.Scan(&m.StudentID, &m.SessionID, &m.Active, &m.JoinedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) SetActive(ctx context.Context, studentID, sessionID int64, active bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE student_sessions SET active=$3 WHERE student_id=$1 AND session_id=$2`,
		studentID, sessionID, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInSession
	}
	return nil
}

// BulkSetInactive гасит призрачные строки одним запросом.
func (r *MembershipRepository) BulkSetInactive(ctx context.Context, sessionID int64, studentIDs []int64) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE student_sessions SET active=FALSE WHERE session_id=$1 AND student_id = ANY($2)`,
		sessionID, studentIDs)
	return err
}

func (r *MembershipRepository) ListActive(ctx context.Context, sessionID int64) ([]domain.ActiveMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.name, s.surname, s.album_number, m.joined_at
		FROM student_sessions AS m
		JOIN students AS s ON s.id = m.student_id
		WHERE m.session_id = $1 AND m.active
		ORDER BY m.joined_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.ActiveMember
	for rows.Next() {
		var m domain.ActiveMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Surname, &m.AlbumNumber, &m.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
