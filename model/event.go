package model

import "time"

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=256"`
	Description string    `json:"description" validate:"required,max=3000"`
	SpeakerID   string    `json:"speaker_id" validate:"required"`
	SpeakerName string    `json:"speaker_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type Question struct {
	ID         string     `json:"id"`
	From       int64      `json:"from"`
	To         int64      `json:"to"`
	Question   string     `json:"question" validate:"required,max=4000"`
	Answer     *string    `json:"answer"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// Answered reports whether the addressed speaker has replied.
func (q Question) Answered() bool {
	return q.Answer != nil && *q.Answer != ""
}

// AnswerText returns the answer or an empty string.
func (q Question) AnswerText() string {
	if q.Answer == nil {
		return ""
	}
	return *q.Answer
}

// PasswordAttempts is the rate-limit state of the speaker secret challenge.
type PasswordAttempts struct {
	Tries        int        `json:"tries"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}
