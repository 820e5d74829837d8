package domain

import "time"

// Membership is the persisted record of a student's presence in a session.
// active=true implies a live connection exists somewhere; that implication is
// eventual and restored by the presence reconciler.
type Membership struct {
	StudentID int64     `db:"student_id"`
	SessionID int64     `db:"session_id"`
	Active    bool      `db:"active"`
	JoinedAt  time.Time `db:"joined_at"`
}

// ActiveMember joins the membership row with the student's public attributes
// for roster pushes.
type ActiveMember struct {
	Student
	JoinedAt time.Time
}
