package model

// Speaker is one SpeakerTable entry. Membership here is independent of
// the user's role.
type Speaker struct {
	UserID string
	Name   string
}
