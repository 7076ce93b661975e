package model

// SchemaVersion is written into every saved document.
const SchemaVersion = 1

// Document is the single system-of-record holding every collection.
// Keys of the maps are stringified Telegram user ids.
type Document struct {
	SchemaVersion    int                         `json:"schema_version"`
	Roles            map[string]Role             `json:"roles"`
	Speakers         map[string]string           `json:"speakers"`
	Events           []Event                     `json:"events"`
	Questions        []Question                  `json:"questions"`
	PasswordAttempts map[string]PasswordAttempts `json:"password_attempts"`
}

// NewDocument returns an empty, default-shaped document.
func NewDocument() *Document {
	return &Document{
		SchemaVersion:    SchemaVersion,
		Roles:            map[string]Role{},
		Speakers:         map[string]string{},
		Events:           []Event{},
		Questions:        []Question{},
		PasswordAttempts: map[string]PasswordAttempts{},
	}
}

// Normalize fills collections that a backend dropped or never stored.
func (d *Document) Normalize() {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = SchemaVersion
	}
	if d.Roles == nil {
		d.Roles = map[string]Role{}
	}
	if d.Speakers == nil {
		d.Speakers = map[string]string{}
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	if d.Questions == nil {
		d.Questions = []Question{}
	}
	if d.PasswordAttempts == nil {
		d.PasswordAttempts = map[string]PasswordAttempts{}
	}
}

// Clone returns a deep copy that shares no memory with d.
func (d *Document) Clone() *Document {
	c := &Document{
		SchemaVersion:    d.SchemaVersion,
		Roles:            make(map[string]Role, len(d.Roles)),
		Speakers:         make(map[string]string, len(d.Speakers)),
		Events:           make([]Event, len(d.Events)),
		Questions:        make([]Question, len(d.Questions)),
		PasswordAttempts: make(map[string]PasswordAttempts, len(d.PasswordAttempts)),
	}
	for k, v := range d.Roles {
		c.Roles[k] = v
	}
	for k, v := range d.Speakers {
		c.Speakers[k] = v
	}
	copy(c.Events, d.Events)
	for i, q := range d.Questions {
		c.Questions[i] = q.Clone()
	}
	for k, v := range d.PasswordAttempts {
		if v.BlockedUntil != nil {
			t := *v.BlockedUntil
			v.BlockedUntil = &t
		}
		c.PasswordAttempts[k] = v
	}
	return c
}

// Clone copies the question including its pointer fields.
func (q Question) Clone() Question {
	if q.Answer != nil {
		a := *q.Answer
		q.Answer = &a
	}
	if q.AnsweredAt != nil {
		t := *q.AnsweredAt
		q.AnsweredAt = &t
	}
	return q
}
