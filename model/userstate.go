package model

// SessionState tags the workflow step a user's next message belongs to.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingSecret
	StateAwaitingEventTitle
	StateAwaitingEventDescription
	StateAwaitingQuestionText
	StateAwaitingAnswerText
	StateAwaitingBroadcastText
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSecret:
		return "awaiting_secret"
	case StateAwaitingEventTitle:
		return "awaiting_event_title"
	case StateAwaitingEventDescription:
		return "awaiting_event_description"
	case StateAwaitingQuestionText:
		return "awaiting_question_text"
	case StateAwaitingAnswerText:
		return "awaiting_answer_text"
	case StateAwaitingBroadcastText:
		return "awaiting_broadcast_text"
	default:
		return "unknown"
	}
}

// Session is the pending continuation of one user. Only the fields that
// belong to State are meaningful:
//
//	StateAwaitingEventDescription: Title
//	StateAwaitingQuestionText:     SpeakerID
//	StateAwaitingAnswerText:       QuestionID
type Session struct {
	State      SessionState
	Title      string
	SpeakerID  int64
	QuestionID string
}

func (s Session) Pending() bool { return s.State != StateIdle }
