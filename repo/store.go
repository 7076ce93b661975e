package repo

import (
	"MeetupBot/model"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Store owns the in-memory document and mirrors it to the persister after
// every mutation. It is the single writer: all mutations go through Update.
type Store struct {
	mu        sync.RWMutex
	doc       *model.Document
	persister Persister
	log       zerolog.Logger
	validate  *validator.Validate
	newID     func() string
}

// NewStore loads the persisted document. A missing or unreadable copy is
// replaced by an empty document; NewStore never fails.
func NewStore(ctx context.Context, persister Persister, log zerolog.Logger) *Store {
	doc, err := persister.Load(ctx)
	switch {
	case errors.Is(err, model.ErrDocumentNotFound):
		log.Info().Msg("no persisted document, starting empty")
		doc = model.NewDocument()
	case err != nil:
		log.Warn().Err(err).Msg("error loading document, starting empty")
		doc = model.NewDocument()
	}
	doc.Normalize()

	return &Store{
		doc:       doc,
		persister: persister,
		log:       log,
		validate:  validator.New(),
		newID:     uuid.NewString,
	}
}

// View runs fn under the read lock. fn must not retain references into doc.
func (s *Store) View(fn func(doc *model.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Update runs fn under the write lock and saves the result before
// returning. If fn fails or the save fails, the document is restored to
// its state before the call.
func (s *Store) Update(ctx context.Context, fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.doc.Clone()
	if err := fn(s.doc); err != nil {
		s.doc = snapshot
		return err
	}
	if err := s.persister.Save(ctx, s.doc); err != nil {
		s.doc = snapshot
		s.log.Error().Err(err).Msg("error saving document")
		return fmt.Errorf("error saving document: %w", err)
	}
	return nil
}

// Role returns the user's role, RoleUser when absent.
func (s *Store) Role(userID string) model.Role {
	role := model.RoleUser
	s.View(func(doc *model.Document) {
		if r, ok := doc.Roles[userID]; ok {
			role = r
		}
	})
	return role
}

// EnsureRole assigns role only if the user has no entry yet. It returns
// the effective role and whether it was newly assigned.
func (s *Store) EnsureRole(ctx context.Context, userID string, role model.Role) (model.Role, bool, error) {
	var (
		effective = role
		created   bool
		known     bool
	)
	s.View(func(doc *model.Document) {
		effective, known = doc.Roles[userID]
	})
	if known {
		return effective, false, nil
	}

	effective = role
	err := s.Update(ctx, func(doc *model.Document) error {
		if existing, ok := doc.Roles[userID]; ok {
			effective = existing
			return nil
		}
		doc.Roles[userID] = role
		created = true
		return nil
	})
	return effective, created, err
}

// SetRole changes the role of a known user. Unknown ids yield
// model.ErrUserDoesNotExist and nothing is saved.
func (s *Store) SetRole(ctx context.Context, userID string, role model.Role) error {
	return s.Update(ctx, func(doc *model.Document) error {
		if _, ok := doc.Roles[userID]; !ok {
			return model.ErrUserDoesNotExist
		}
		doc.Roles[userID] = role
		return nil
	})
}

// Roles returns a copy of the role table.
func (s *Store) Roles() map[string]model.Role {
	var roles map[string]model.Role
	s.View(func(doc *model.Document) {
		roles = make(map[string]model.Role, len(doc.Roles))
		for k, v := range doc.Roles {
			roles[k] = v
		}
	})
	return roles
}

// UserIDs lists every known user in a stable order.
func (s *Store) UserIDs() []string {
	var ids []string
	s.View(func(doc *model.Document) {
		ids = lo.Keys(doc.Roles)
	})
	sortUserIDs(ids)
	return ids
}

func (s *Store) RegisterSpeaker(ctx context.Context, userID, name string) error {
	return s.Update(ctx, func(doc *model.Document) error {
		doc.Speakers[userID] = name
		return nil
	})
}

// PromoteToSpeaker grants the speaker role, registers the display name and
// clears the password attempts in one save.
func (s *Store) PromoteToSpeaker(ctx context.Context, userID, name string) error {
	return s.Update(ctx, func(doc *model.Document) error {
		doc.Roles[userID] = model.RoleSpeaker
		doc.Speakers[userID] = name
		doc.PasswordAttempts[userID] = model.PasswordAttempts{Tries: 0}
		return nil
	})
}

// Speakers lists the speaker table in a stable order.
func (s *Store) Speakers() []model.Speaker {
	var speakers []model.Speaker
	s.View(func(doc *model.Document) {
		speakers = lo.MapToSlice(doc.Speakers, func(id, name string) model.Speaker {
			return model.Speaker{UserID: id, Name: name}
		})
	})
	slices.SortFunc(speakers, func(a, b model.Speaker) int {
		return compareUserIDs(a.UserID, b.UserID)
	})
	return speakers
}

func (s *Store) SpeakerName(userID string) (string, bool) {
	var (
		name string
		ok   bool
	)
	s.View(func(doc *model.Document) {
		name, ok = doc.Speakers[userID]
	})
	return name, ok
}

// RemoveSpeaker drops both the speaker entry and the role entry.
func (s *Store) RemoveSpeaker(ctx context.Context, userID string) error {
	return s.Update(ctx, func(doc *model.Document) error {
		delete(doc.Speakers, userID)
		delete(doc.Roles, userID)
		return nil
	})
}

// Events returns a copy of the event list in append order.
func (s *Store) Events() []model.Event {
	var events []model.Event
	s.View(func(doc *model.Document) {
		events = slices.Clone(doc.Events)
	})
	return events
}

// Event returns the event and its current zero-based position.
func (s *Store) Event(id string) (model.Event, int, error) {
	var (
		event model.Event
		index = -1
	)
	s.View(func(doc *model.Document) {
		index = slices.IndexFunc(doc.Events, func(e model.Event) bool { return e.ID == id })
		if index >= 0 {
			event = doc.Events[index]
		}
	})
	if index < 0 {
		return model.Event{}, -1, model.ErrEventDoesNotExist
	}
	return event, index, nil
}

// AddEvent validates and appends the event. The speaker name comes from
// the speaker table when the creator is registered there; otherwise the
// creator is registered under the given name. Roles are left untouched.
func (s *Store) AddEvent(ctx context.Context, event model.Event) (model.Event, error) {
	event.ID = s.newID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := s.validate.Struct(event); err != nil {
		return model.Event{}, fmt.Errorf("invalid event: %w", err)
	}

	err := s.Update(ctx, func(doc *model.Document) error {
		if name, ok := doc.Speakers[event.SpeakerID]; ok {
			event.SpeakerName = name
		} else {
			doc.Speakers[event.SpeakerID] = event.SpeakerName
		}
		doc.Events = append(doc.Events, event)
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return event, nil
}

// DeleteEvent removes the event with the given id and returns it.
func (s *Store) DeleteEvent(ctx context.Context, id string) (model.Event, error) {
	var removed model.Event
	err := s.Update(ctx, func(doc *model.Document) error {
		i := slices.IndexFunc(doc.Events, func(e model.Event) bool { return e.ID == id })
		if i < 0 {
			return model.ErrEventDoesNotExist
		}
		removed = doc.Events[i]
		doc.Events = slices.Delete(doc.Events, i, i+1)
		return nil
	})
	return removed, err
}

// Questions returns a copy of the whole question log.
func (s *Store) Questions() []model.Question {
	var questions []model.Question
	s.View(func(doc *model.Document) {
		questions = lo.Map(doc.Questions, func(q model.Question, _ int) model.Question {
			return q.Clone()
		})
	})
	return questions
}

// Question returns the question and its current zero-based position in
// the full log.
func (s *Store) Question(id string) (model.Question, int, error) {
	var (
		question model.Question
		index    = -1
	)
	s.View(func(doc *model.Document) {
		index = slices.IndexFunc(doc.Questions, func(q model.Question) bool { return q.ID == id })
		if index >= 0 {
			question = doc.Questions[index].Clone()
		}
	})
	if index < 0 {
		return model.Question{}, -1, model.ErrQuestionDoesNotExist
	}
	return question, index, nil
}

// QuestionsTo lists the questions addressed to a speaker.
func (s *Store) QuestionsTo(to int64) []model.Question {
	return lo.Filter(s.Questions(), func(q model.Question, _ int) bool {
		return q.To == to
	})
}

// AnsweredQuestionsFrom lists the answered questions a user asked.
func (s *Store) AnsweredQuestionsFrom(from int64) []model.Question {
	return lo.Filter(s.Questions(), func(q model.Question, _ int) bool {
		return q.From == from && q.Answered()
	})
}

func (s *Store) AddQuestion(ctx context.Context, question model.Question) (model.Question, error) {
	question.ID = s.newID()
	question.Answer = nil
	question.AnsweredAt = nil
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now().UTC()
	}
	if err := s.validate.Struct(question); err != nil {
		return model.Question{}, fmt.Errorf("invalid question: %w", err)
	}

	err := s.Update(ctx, func(doc *model.Document) error {
		doc.Questions = append(doc.Questions, question)
		return nil
	})
	if err != nil {
		return model.Question{}, err
	}
	return question, nil
}

// AnswerQuestion attaches the answer in place.
func (s *Store) AnswerQuestion(ctx context.Context, id, answer string, at time.Time) (model.Question, error) {
	var answered model.Question
	err := s.Update(ctx, func(doc *model.Document) error {
		i := slices.IndexFunc(doc.Questions, func(q model.Question) bool { return q.ID == id })
		if i < 0 {
			return model.ErrQuestionDoesNotExist
		}
		doc.Questions[i].Answer = &answer
		doc.Questions[i].AnsweredAt = &at
		answered = doc.Questions[i].Clone()
		return nil
	})
	return answered, err
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) (model.Question, error) {
	var removed model.Question
	err := s.Update(ctx, func(doc *model.Document) error {
		i := slices.IndexFunc(doc.Questions, func(q model.Question) bool { return q.ID == id })
		if i < 0 {
			return model.ErrQuestionDoesNotExist
		}
		removed = doc.Questions[i].Clone()
		doc.Questions = slices.Delete(doc.Questions, i, i+1)
		return nil
	})
	return removed, err
}

// Attempts returns the user's password attempts, zero when absent.
func (s *Store) Attempts(userID string) model.PasswordAttempts {
	var attempts model.PasswordAttempts
	s.View(func(doc *model.Document) {
		attempts = doc.PasswordAttempts[userID]
	})
	return attempts
}

func (s *Store) SetAttempts(ctx context.Context, userID string, attempts model.PasswordAttempts) error {
	return s.Update(ctx, func(doc *model.Document) error {
		doc.PasswordAttempts[userID] = attempts
		return nil
	})
}

// RemoveUser deletes the user's role and speaker entries and every
// question they sent or received, in a single save. A user with neither
// entry yields model.ErrUserDoesNotExist.
func (s *Store) RemoveUser(ctx context.Context, userID string) error {
	numericID, parseErr := strconv.ParseInt(userID, 10, 64)
	return s.Update(ctx, func(doc *model.Document) error {
		_, hasRole := doc.Roles[userID]
		_, isSpeaker := doc.Speakers[userID]
		if !hasRole && !isSpeaker {
			return model.ErrUserDoesNotExist
		}
		delete(doc.Roles, userID)
		delete(doc.Speakers, userID)
		if parseErr == nil {
			doc.Questions = lo.Reject(doc.Questions, func(q model.Question, _ int) bool {
				return q.From == numericID || q.To == numericID
			})
		}
		return nil
	})
}

// compareUserIDs orders numeric ids numerically and anything else after
// them lexically.
func compareUserIDs(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func sortUserIDs(ids []string) {
	slices.SortFunc(ids, compareUserIDs)
}
