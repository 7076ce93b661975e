package handler

import (
	"MeetupBot/auth"
	"MeetupBot/clock"
	"MeetupBot/model"
	"MeetupBot/repo"
	"MeetupBot/transport"
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

const (
	msgSomethingWrong = "Something went wrong, please try again."
	msgNoPermission   = "⛔ You have no permission."
	msgSendText       = "Please send a text message (or 🔙 Back)."
)

// ConferenceBot routes every update of the bot. Updates are processed one
// at a time; the pending workflow of each user lives in sessions and is
// not persisted.
type ConferenceBot struct {
	mu         sync.Mutex
	store      *repo.Store
	verifier   *auth.Verifier
	clock      clock.Clock
	operatorID int64
	sessions   map[int64]model.Session
	log        zerolog.Logger
}

func NewConferenceBot(
	store *repo.Store,
	verifier *auth.Verifier,
	c clock.Clock,
	operatorID int64,
	log zerolog.Logger,
) *ConferenceBot {
	return &ConferenceBot{
		store:      store,
		verifier:   verifier,
		clock:      c,
		operatorID: operatorID,
		sessions:   make(map[int64]model.Session),
		log:        log,
	}
}

// Handler is registered as the bot's default handler.
func (h *ConferenceBot) Handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.Dispatch(ctx, b, update)
}

// Dispatch handles one update to completion before the next one starts.
func (h *ConferenceBot) Dispatch(ctx context.Context, m transport.Messenger, update *models.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, m, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		h.handleMessage(ctx, m, update.Message)
	}
}

// Session returns the pending workflow of a user.
func (h *ConferenceBot) Session(userID int64) model.Session {
	return h.sessions[userID]
}

func (h *ConferenceBot) setSession(userID int64, s model.Session) {
	h.sessions[userID] = s
}

func (h *ConferenceBot) clearSession(userID int64) {
	delete(h.sessions, userID)
}

func (h *ConferenceBot) handleMessage(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	h.log.Debug().
		Int64("user_id", userID).
		Str("username", msg.From.Username).
		Str("text", msg.Text).
		Msg("message received")

	if s := h.Session(userID); s.Pending() {
		h.continueSession(ctx, m, msg, s)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if isBack(text) {
		h.sendMainMenu(ctx, m, msg.Chat.ID, userID)
		return
	}

	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		h.start(ctx, m, msg)
	case text == "/help":
		h.help(ctx, m, msg)
	case text == labelViewEvents:
		h.showEvents(ctx, m, msg)
	case text == labelAskSpeaker:
		h.chooseSpeaker(ctx, m, msg)
	case text == labelMyAnswers:
		h.userAnswers(ctx, m, msg)
	case text == labelBecomeSpeaker:
		h.requestSpeaker(ctx, m, msg)
	case text == labelCreateEvent:
		h.createEventStart(ctx, m, msg)
	case text == labelMyQuestions:
		h.speakerQuestions(ctx, m, msg)
	case text == labelAdminPanel:
		h.openAdminPanel(ctx, m, msg)
	default:
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "I didn't understand that. Use the menu below or /start.",
			ReplyMarkup: MenuFor(h.store.Role(userKey(userID))),
		})
	}
}

// continueSession feeds the message to the user's pending step. "Back"
// aborts any step without side effects.
func (h *ConferenceBot) continueSession(ctx context.Context, m transport.Messenger, msg *models.Message, s model.Session) {
	userID := msg.From.ID
	if isBack(msg.Text) {
		h.clearSession(userID)
		h.sendMainMenu(ctx, m, msg.Chat.ID, userID)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		h.reply(ctx, m, msg.Chat.ID, msgSendText)
		return
	}

	switch s.State {
	case model.StateAwaitingSecret:
		h.checkSpeakerPassword(ctx, m, msg)
	case model.StateAwaitingEventTitle:
		h.createEventTitle(ctx, m, msg)
	case model.StateAwaitingEventDescription:
		h.createEventCommit(ctx, m, msg, s.Title)
	case model.StateAwaitingQuestionText:
		h.sendQuestionToSpeaker(ctx, m, msg, s.SpeakerID)
	case model.StateAwaitingAnswerText:
		h.answerQuestionFinish(ctx, m, msg, s.QuestionID)
	case model.StateAwaitingBroadcastText:
		h.sendBroadcast(ctx, m, msg)
	default:
		h.log.Warn().Stringer("state", s.State).Int64("user_id", userID).Msg("unknown session state")
		h.clearSession(userID)
		h.sendMainMenu(ctx, m, msg.Chat.ID, userID)
	}
}

// callback is the context of one button press.
type callback struct {
	query     *models.CallbackQuery
	userID    int64
	chatID    int64
	messageID int
}

func newCallback(q *models.CallbackQuery) callback {
	c := callback{query: q, userID: q.From.ID, chatID: q.From.ID}
	switch {
	case q.Message.Message != nil:
		c.chatID = q.Message.Message.Chat.ID
		c.messageID = q.Message.Message.ID
	case q.Message.InaccessibleMessage != nil:
		c.chatID = q.Message.InaccessibleMessage.Chat.ID
		c.messageID = q.Message.InaccessibleMessage.MessageID
	}
	return c
}

func (h *ConferenceBot) handleCallback(ctx context.Context, m transport.Messenger, q *models.CallbackQuery) {
	cb := newCallback(q)
	h.log.Debug().
		Int64("user_id", cb.userID).
		Str("data", q.Data).
		Msg("callback received")

	notice := ""
	cmd, ok := ParseCommand(q.Data)
	if !ok {
		h.log.Debug().Str("data", q.Data).Msg("unknown callback token")
		notice = "Unknown action."
	} else {
		notice = h.routeCallback(ctx, m, cb, cmd)
	}

	_, err := m.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: q.ID,
		Text:            notice,
	})
	if err != nil {
		h.log.Debug().Err(err).Msg("error answering callback query")
	}
}

// routeCallback runs the command and returns the short notice shown to
// the presser.
func (h *ConferenceBot) routeCallback(ctx context.Context, m transport.Messenger, cb callback, cmd Command) string {
	switch cmd.Category {
	case CategoryAsk:
		if cmd.Action == ActionBack {
			h.sendMainMenu(ctx, m, cb.chatID, cb.userID)
			return ""
		}
		return h.askQuestionStart(ctx, m, cb, cmd.Arg)
	case CategoryAnswer:
		if cmd.Action == ActionBack {
			h.sendMainMenu(ctx, m, cb.chatID, cb.userID)
			return ""
		}
		return h.answerQuestionStart(ctx, m, cb, cmd.Arg)
	}

	if cb.userID != h.operatorID {
		h.log.Info().Int64("user_id", cb.userID).Str("data", cb.query.Data).Msg("admin action refused")
		return "No permission."
	}
	return h.routeAdmin(ctx, m, cb, cmd)
}

func (h *ConferenceBot) start(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	initial := model.RoleUser
	if userID == h.operatorID {
		initial = model.RoleAdmin
	}
	role, created, err := h.store.EnsureRole(ctx, userKey(userID), initial)
	if err != nil {
		h.sendError(ctx, m, msg.Chat.ID, err)
		return
	}
	if created {
		h.log.Info().Int64("user_id", userID).Stringer("role", role).Msg("user registered")
	}
	h.sendMenu(ctx, m, msg.Chat.ID, role)
}

func (h *ConferenceBot) help(ctx context.Context, m transport.Messenger, msg *models.Message) {
	role := h.store.Role(userKey(msg.From.ID))
	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "Pick an action from the menu below. Press " + labelBack + " at any step to return here.",
		ReplyMarkup: MenuFor(role),
	})
}

func (h *ConferenceBot) sendMainMenu(ctx context.Context, m transport.Messenger, chatID, userID int64) {
	h.sendMenu(ctx, m, chatID, h.store.Role(userKey(userID)))
}

func (h *ConferenceBot) sendMenu(ctx context.Context, m transport.Messenger, chatID int64, role model.Role) {
	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        md(esc("Menu updated. Your role: "), bold(role.String())),
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: MenuFor(role),
	})
}

func (h *ConferenceBot) send(ctx context.Context, m transport.Messenger, params *bot.SendMessageParams) {
	if _, err := m.SendMessage(ctx, params); err != nil {
		h.log.Error().Err(err).Any("chat_id", params.ChatID).Msg("error sending message")
	}
}

func (h *ConferenceBot) reply(ctx context.Context, m transport.Messenger, chatID int64, text string) {
	h.send(ctx, m, &bot.SendMessageParams{ChatID: chatID, Text: text})
}

func (h *ConferenceBot) sendError(ctx context.Context, m transport.Messenger, chatID int64, err error) {
	h.log.Error().Err(err).Int64("chat_id", chatID).Msg("error handling update")
	h.reply(ctx, m, chatID, msgSomethingWrong)
}

// render replaces the pressed message in place, or sends a new message
// when the edit is rejected (for example when the message is too old).
func (h *ConferenceBot) render(ctx context.Context, m transport.Messenger, cb callback, text string, kb *models.InlineKeyboardMarkup) {
	if cb.messageID != 0 {
		_, err := m.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      cb.chatID,
			MessageID:   cb.messageID,
			Text:        text,
			ReplyMarkup: kb,
		})
		if err == nil {
			return
		}
		h.log.Debug().Err(err).Int("message_id", cb.messageID).Msg("error editing message, sending a new one")
	}
	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      cb.chatID,
		Text:        text,
		ReplyMarkup: kb,
	})
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
