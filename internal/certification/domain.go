package certification

import "time"

// Certificate records a passed assessment. Number is a ULID, sortable by
// issue time and safe to print on the document itself.
type Certificate struct {
	ID       int64
	Number   string
	UserID   int64
	ExamID   int64
	Title    string
	Score    int
	IssuedAt time.Time
	Revoked  bool
}
