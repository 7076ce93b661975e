package handler

import (
	"MeetupBot/auth"
	"MeetupBot/clock"
	"MeetupBot/model"
	"MeetupBot/repo"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	operatorID  int64 = 1
	speakerID   int64 = 2
	attendeeID  int64 = 3
	strangerID  int64 = 4
	speakerPass       = "gopher"
)

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	bot   *ConferenceBot
	store *repo.Store
	clock *clock.FakeClock
	m     *fakeMessenger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	c := clock.Fake(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	store := repo.NewStore(ctx, repo.NewFilePersister(filepath.Join(t.TempDir(), "db.json")), zerolog.Nop())
	verifier := auth.NewVerifier(speakerPass, auth.DefaultMaxTries, auth.DefaultBlockWindow, c)
	return &testEnv{
		t:     t,
		ctx:   ctx,
		bot:   NewConferenceBot(store, verifier, c, operatorID, zerolog.Nop()),
		store: store,
		clock: c,
		m:     newFakeMessenger(),
	}
}

func (e *testEnv) say(userID int64, text string) {
	e.bot.Dispatch(e.ctx, e.m, &models.Update{
		Message: &models.Message{
			ID:   100,
			From: &models.User{ID: userID, FirstName: "User" + userKey(userID)},
			Chat: models.Chat{ID: userID},
			Text: text,
		},
	})
}

func (e *testEnv) press(userID int64, data string) {
	e.bot.Dispatch(e.ctx, e.m, &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-" + data,
			From: models.User{ID: userID, FirstName: "User" + userKey(userID)},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 42, Chat: models.Chat{ID: userID}},
			},
		},
	})
}

// seed registers the operator, one speaker and one attendee.
func (e *testEnv) seed() {
	e.t.Helper()
	e.say(operatorID, "/start")
	e.say(speakerID, "/start")
	e.say(attendeeID, "/start")
	require.NoError(e.t, e.store.PromoteToSpeaker(e.ctx, userKey(speakerID), "Ada"))
	e.m.reset()
}

func (e *testEnv) addEvent(title string) model.Event {
	e.t.Helper()
	event, err := e.store.AddEvent(e.ctx, model.Event{
		Title:       title,
		Description: "About " + title,
		SpeakerID:   userKey(speakerID),
		SpeakerName: "Ada",
	})
	require.NoError(e.t, err)
	return event
}

func TestStart_AssignsInitialRoleOnce(t *testing.T) {
	e := newTestEnv(t)

	e.say(operatorID, "/start")
	e.say(attendeeID, "/start")
	assert.Equal(t, model.RoleAdmin, e.store.Role(userKey(operatorID)))
	assert.Equal(t, model.RoleUser, e.store.Role(userKey(attendeeID)))

	last := e.m.last(attendeeID)
	assert.Contains(t, last.text, "*user*")
	assert.Equal(t, models.ParseModeMarkdown, last.parseMode)
	kb, ok := last.markup.(*models.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.ResizeKeyboard)

	require.NoError(t, e.store.SetRole(e.ctx, userKey(attendeeID), model.RoleSpeaker))
	e.say(attendeeID, "/start")
	assert.Equal(t, model.RoleSpeaker, e.store.Role(userKey(attendeeID)))
	assert.Contains(t, e.m.last(attendeeID).text, "*speaker*")
}

func TestUnknownText_ShowsHint(t *testing.T) {
	e := newTestEnv(t)
	e.say(attendeeID, "hello?")

	assert.Contains(t, e.m.last(attendeeID).text, "didn't understand")
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
}

func TestBecomeSpeaker_CorrectPassword(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(attendeeID, labelBecomeSpeaker)
	assert.Equal(t, model.StateAwaitingSecret, e.bot.Session(attendeeID).State)

	e.say(attendeeID, "nope")
	assert.Contains(t, e.m.last(attendeeID).text, "Attempts left: 2")
	assert.Equal(t, model.StateAwaitingSecret, e.bot.Session(attendeeID).State)

	e.say(attendeeID, speakerPass)
	assert.Equal(t, model.RoleSpeaker, e.store.Role(userKey(attendeeID)))
	name, ok := e.store.SpeakerName(userKey(attendeeID))
	assert.True(t, ok)
	assert.Equal(t, "User3", name)
	assert.Equal(t, 0, e.store.Attempts(userKey(attendeeID)).Tries)
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
	assert.Equal(t, "🎤 You are now a speaker!", e.m.last(attendeeID).text)
}

func TestBecomeSpeaker_BlocksAfterThreeWrongTries(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	key := userKey(attendeeID)

	e.say(attendeeID, labelBecomeSpeaker)
	e.say(attendeeID, "a")
	e.say(attendeeID, "b")
	e.say(attendeeID, "c")

	assert.Equal(t, "⛔ Wrong password 3 times. Blocked for 5 minutes.", e.m.last(attendeeID).text)
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
	attempts := e.store.Attempts(key)
	assert.Equal(t, 3, attempts.Tries)
	require.NotNil(t, attempts.BlockedUntil)

	e.clock.Advance(2 * time.Minute)
	e.say(attendeeID, labelBecomeSpeaker)
	assert.Equal(t, "⛔ Blocked. Try again in 180 s.", e.m.last(attendeeID).text)
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
	assert.Equal(t, attempts, e.store.Attempts(key))

	e.clock.Advance(3*time.Minute + time.Second)
	e.say(attendeeID, labelBecomeSpeaker)
	assert.Equal(t, model.StateAwaitingSecret, e.bot.Session(attendeeID).State)
	e.say(attendeeID, speakerPass)
	assert.Equal(t, model.RoleSpeaker, e.store.Role(key))
}

func TestBecomeSpeaker_RefusedForSpeakers(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(speakerID, labelBecomeSpeaker)
	assert.Equal(t, "You already have speaker access.", e.m.last(speakerID).text)
	assert.Equal(t, model.StateIdle, e.bot.Session(speakerID).State)
}

func TestBack_AbortsPendingStep(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(attendeeID, labelBecomeSpeaker)
	e.say(attendeeID, "⬅ Back")

	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
	assert.Equal(t, 0, e.store.Attempts(userKey(attendeeID)).Tries)
	assert.Contains(t, e.m.last(attendeeID).text, "Menu updated")
}

func TestPendingStep_TakesPrecedenceOverMenuLabels(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(speakerID, labelCreateEvent)
	e.say(speakerID, labelViewEvents)

	s := e.bot.Session(speakerID)
	assert.Equal(t, model.StateAwaitingEventDescription, s.State)
	assert.Equal(t, labelViewEvents, s.Title)
}

func TestCreateEvent_BroadcastsToEveryoneButCreator(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(speakerID, labelCreateEvent)
	e.say(speakerID, "GopherCon")
	e.say(speakerID, "Talks about Go")

	events := e.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "GopherCon", events[0].Title)
	assert.Equal(t, "Talks about Go", events[0].Description)
	assert.Equal(t, userKey(speakerID), events[0].SpeakerID)
	assert.Equal(t, "Ada", events[0].SpeakerName)
	assert.NotEmpty(t, events[0].ID)

	assert.Equal(t, "✔ Event created!", e.m.last(speakerID).text)
	assert.False(t, e.m.received(speakerID, "New event"))
	for _, id := range []int64{operatorID, attendeeID} {
		assert.True(t, e.m.received(id, "*GopherCon*"), "user %d", id)
		assert.True(t, e.m.received(id, "Talks about Go"), "user %d", id)
	}

	e.say(attendeeID, labelViewEvents)
	last := e.m.last(attendeeID)
	assert.Contains(t, last.text, "GopherCon")
	assert.Contains(t, last.text, "Ada")
}

func TestCreateEvent_RefusedForUsers(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(attendeeID, labelCreateEvent)
	assert.Equal(t, msgOnlySpeakers, e.m.last(attendeeID).text)
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
}

func TestCreateEvent_RejectsOversizedTitle(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	e.say(speakerID, labelCreateEvent)
	e.say(speakerID, string(long))
	e.say(speakerID, "desc")

	assert.Empty(t, e.store.Events())
	assert.Contains(t, e.m.last(speakerID).text, "too long")
}

func TestQuestionAndAnswer_RoundTrip(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(attendeeID, labelAskSpeaker)
	assert.Contains(t, buttonData(e.m.last(attendeeID).markup), "ask_2")

	e.press(attendeeID, "ask_2")
	assert.Equal(t, model.StateAwaitingQuestionText, e.bot.Session(attendeeID).State)
	e.say(attendeeID, "How does the scheduler work?")

	questions := e.store.QuestionsTo(speakerID)
	require.Len(t, questions, 1)
	q := questions[0]
	assert.Equal(t, attendeeID, q.From)
	assert.False(t, q.Answered())
	assert.True(t, e.m.received(speakerID, "How does the scheduler work?"))
	assert.Equal(t, "✔ Question sent!", e.m.last(attendeeID).text)

	e.say(speakerID, labelMyQuestions)
	assert.Contains(t, buttonData(e.m.last(speakerID).markup), "answer_"+q.ID)

	e.press(speakerID, "answer_"+q.ID)
	assert.Equal(t, model.StateAwaitingAnswerText, e.bot.Session(speakerID).State)
	e.say(speakerID, "It uses work stealing")

	answered, _, err := e.store.Question(q.ID)
	require.NoError(t, err)
	assert.Equal(t, "It uses work stealing", answered.AnswerText())
	assert.True(t, e.m.received(attendeeID, "It uses work stealing"))

	e.say(attendeeID, labelMyAnswers)
	last := e.m.last(attendeeID)
	assert.Contains(t, last.text, "How does the scheduler work?")
	assert.Contains(t, last.text, "It uses work stealing")
}

func TestAnswer_OnlyForTheAddressedSpeaker(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	q, err := e.store.AddQuestion(e.ctx, model.Question{From: attendeeID, To: speakerID, Question: "Why?"})
	require.NoError(t, err)

	e.press(strangerID, "answer_"+q.ID)

	assert.Equal(t, "Invalid question.", e.m.lastNotice())
	assert.Equal(t, model.StateIdle, e.bot.Session(strangerID).State)
}

func TestAsk_UnknownSpeaker(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.press(attendeeID, "ask_999")
	assert.Equal(t, "Speaker not found.", e.m.lastNotice())
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
}

func TestNewWorkflowReplacesPendingOne(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.say(speakerID, labelCreateEvent)
	e.press(speakerID, "ask_2")

	assert.Equal(t, model.StateAwaitingQuestionText, e.bot.Session(speakerID).State)
}

func TestAdmin_DemoteTokenIsNotUserDetail(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.press(operatorID, "user_to_user_2")

	assert.Equal(t, model.RoleUser, e.store.Role(userKey(speakerID)))
	assert.Equal(t, "Role changed", e.m.lastNotice())
	assert.Equal(t, "Users:", e.m.lastEdit().text)
}

func TestAdmin_DeleteEventNotifiesEveryone(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	first := e.addEvent("Opening")
	second := e.addEvent("Keynote")
	third := e.addEvent("Closing")

	e.press(operatorID, "event_delete_"+first.ID)

	events := e.store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, third.ID, events[1].ID)
	assert.Equal(t, "Event deleted: Opening", e.m.lastNotice())
	for _, id := range []int64{operatorID, speakerID, attendeeID} {
		assert.True(t, e.m.received(id, "*Opening*"), "user %d", id)
	}
	assert.Equal(t, []string{"event_" + second.ID, "event_" + third.ID, "admin_back"}, buttonData(e.m.lastEdit().markup))

	e.press(operatorID, "event_delete_"+first.ID)
	assert.Equal(t, "Event not found.", e.m.lastNotice())
	assert.Len(t, e.store.Events(), 2)
}

func TestAdmin_DeleteUserCascades(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	_, err := e.store.AddQuestion(e.ctx, model.Question{From: attendeeID, To: speakerID, Question: "Q1"})
	require.NoError(t, err)
	_, err = e.store.AddQuestion(e.ctx, model.Question{From: operatorID, To: attendeeID, Question: "Q2"})
	require.NoError(t, err)

	e.press(operatorID, "user_delete_2")

	assert.Equal(t, "User deleted", e.m.lastNotice())
	assert.NotContains(t, e.store.UserIDs(), "2")
	_, ok := e.store.SpeakerName("2")
	assert.False(t, ok)
	remaining := e.store.Questions()
	require.Len(t, remaining, 1)
	assert.Equal(t, "Q2", remaining[0].Question)

	e.press(operatorID, "user_delete_2")
	assert.Equal(t, "User not found.", e.m.lastNotice())
}

func TestAdmin_RefusedForNonOperator(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.press(attendeeID, "user_delete_2")
	assert.Equal(t, "No permission.", e.m.lastNotice())
	assert.Contains(t, e.store.UserIDs(), "2")

	e.say(attendeeID, labelAdminPanel)
	assert.Equal(t, msgNoPermission, e.m.last(attendeeID).text)
}

func TestAdmin_QuestionDetailShowsParticipants(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	q, err := e.store.AddQuestion(e.ctx, model.Question{From: attendeeID, To: speakerID, Question: "Why?"})
	require.NoError(t, err)

	e.press(operatorID, "q_"+q.ID)

	text := e.m.lastEdit().text
	assert.Contains(t, text, "From: id3")
	assert.Contains(t, text, "To: id2")
	assert.Contains(t, text, "Answer: None")

	e.press(operatorID, "q_delete_"+q.ID)
	assert.Equal(t, "Question deleted", e.m.lastNotice())
	assert.Empty(t, e.store.Questions())
}

func TestAdmin_BroadcastReachesEveryoneButSender(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	e.m.unreached[attendeeID] = true

	e.press(operatorID, "admin_broadcast")
	assert.Equal(t, model.StateAwaitingBroadcastText, e.bot.Session(operatorID).State)
	e.say(operatorID, "Doors open at 9")

	assert.True(t, e.m.received(speakerID, "Doors open at 9"))
	assert.False(t, e.m.received(operatorID, "Message from the organiser"))
	assert.Equal(t, "✅ Broadcast sent to 1 users!", e.m.last(operatorID).text)
}

func TestRender_FallsBackToSendWhenEditFails(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	e.m.failEdits = true

	e.press(operatorID, "admin_back")

	assert.Equal(t, adminPanelTitle, e.m.last(operatorID).text)
	assert.Empty(t, e.m.edits)
}

func TestCallback_UnknownTokenIsAnswered(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.press(attendeeID, "bogus")
	assert.Equal(t, "Unknown action.", e.m.lastNotice())
}

func TestAdmin_StaleDemoteDoesNotRestoreDeletedUser(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.press(operatorID, "user_delete_3")
	require.NotContains(t, e.store.UserIDs(), "3")

	e.press(operatorID, "user_to_user_3")

	assert.Equal(t, "User not found.", e.m.lastNotice())
	assert.Equal(t, []string{"1", "2"}, e.store.UserIDs())
}

func TestAskQuestion_RejectsOversizedText(t *testing.T) {
	e := newTestEnv(t)
	e.seed()

	e.press(attendeeID, "ask_2")
	e.say(attendeeID, strings.Repeat("?", 4001))

	assert.Empty(t, e.store.Questions())
	assert.Contains(t, e.m.last(attendeeID).text, "too long")
	assert.False(t, e.m.received(speakerID, "New question"))
	assert.Equal(t, model.StateIdle, e.bot.Session(attendeeID).State)
}

func TestShowEvents_SplitsLongListsAcrossMessages(t *testing.T) {
	e := newTestEnv(t)
	e.seed()
	for i := range 6 {
		_, err := e.store.AddEvent(e.ctx, model.Event{
			Title:       fmt.Sprintf("Talk %d", i+1),
			Description: strings.Repeat("d", 2000),
			SpeakerID:   userKey(speakerID),
		})
		require.NoError(t, err)
	}

	e.say(attendeeID, labelViewEvents)

	pages := e.m.to(attendeeID)
	require.Greater(t, len(pages), 1)
	var all strings.Builder
	for i, p := range pages {
		assert.LessOrEqual(t, textLen(p.text), maxMessageLen)
		assert.Equal(t, models.ParseModeMarkdown, p.parseMode)
		if i < len(pages)-1 {
			assert.Nil(t, p.markup)
		}
		all.WriteString(p.text)
	}
	assert.NotNil(t, pages[len(pages)-1].markup)
	for i := range 6 {
		assert.Contains(t, all.String(), fmt.Sprintf("Talk %d", i+1))
	}
}
