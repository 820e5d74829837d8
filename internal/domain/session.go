package domain

import "time"

type Session struct {
	ID              int64     `db:"session_id"`
	OwnerID         int64     `db:"user_id"`
	Name            string    `db:"name"`
	Code            string    `db:"session_code"`
	IsActive        bool      `db:"is_active"`
	IsDisplayHidden bool      `db:"is_display_hidden"`
	Temperature     float64   `db:"temperature"`
	RhythmType      int16     `db:"rhythm_type"`
	BeatsPerMinute  int       `db:"beats_per_minute"`
	NoiseLevel      int       `db:"noise_level"`
	BP              string    `db:"bp"`
	SpO2            string    `db:"spo2"`
	EtCO2           string    `db:"etco2"`
	RR              string    `db:"rr"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}
