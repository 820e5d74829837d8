package domain

type Student struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Surname     string `db:"surname"`
	AlbumNumber string `db:"album_number"`
}
