package postgres

import (
	"context"

	"github.com/medsim-planet/session-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StudentRepository struct {
	db *pgxpool.Pool
}

func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{db: db}
}

// Upsert находит студента по номеру альбома или создаёт его;
// имя и фамилия обновляются при повторном входе.
func (r *StudentRepository) Upsert(ctx context.Context, name, surname, albumNumber string) (*domain.Student, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO students (name, surname, album_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (album_number)
		DO UPDATE SET name = EXCLUDED.name, surname = EXCLUDED.surname
		RETURNING id, name, surname, album_number
	`, name, surname, albumNumber)

	var s domain.Student
	if err := row.Scan(&s.ID, &s.Name, &s.Surname, &s.AlbumNumber); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) Get(ctx context.Context, id int64) (*domain.Student, error) {
	var s domain.Student
	err := r.db.QueryRow(ctx,
		`SELECT id, name, surname, album_number FROM students WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Surname, &s.AlbumNumber)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}
