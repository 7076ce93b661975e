package handler

import (
	"MeetupBot/model"
	"MeetupBot/transport"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const adminPanelTitle = "🔧 Admin panel:"

func (h *ConferenceBot) openAdminPanel(ctx context.Context, m transport.Messenger, msg *models.Message) {
	if msg.From.ID != h.operatorID {
		h.reply(ctx, m, msg.Chat.ID, msgNoPermission)
		return
	}
	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        adminPanelTitle,
		ReplyMarkup: adminPanelKeyboard(),
	})
}

// routeAdmin walks the admin tree: panel, section list, entity detail,
// destructive action, back to the section list. The caller has already
// checked that the presser is the operator.
func (h *ConferenceBot) routeAdmin(ctx context.Context, m transport.Messenger, cb callback, cmd Command) string {
	switch cmd.Category {
	case CategoryAdmin:
		if cmd.Action == ActionBack {
			h.render(ctx, m, cb, adminPanelTitle, adminPanelKeyboard())
			return ""
		}
		return h.openSection(ctx, m, cb, cmd.Arg)

	case CategoryUser:
		switch cmd.Action {
		case ActionDemote:
			err := h.store.SetRole(ctx, cmd.Arg, model.RoleUser)
			if errors.Is(err, model.ErrUserDoesNotExist) {
				return "User not found."
			}
			if err != nil {
				h.log.Error().Err(err).Str("user_id", cmd.Arg).Msg("error changing role")
				return msgSomethingWrong
			}
			h.renderUsers(ctx, m, cb)
			return "Role changed"
		case ActionDelete:
			err := h.store.RemoveUser(ctx, cmd.Arg)
			if errors.Is(err, model.ErrUserDoesNotExist) {
				return "User not found."
			}
			if err != nil {
				h.log.Error().Err(err).Str("user_id", cmd.Arg).Msg("error removing user")
				return msgSomethingWrong
			}
			h.log.Info().Str("user_id", cmd.Arg).Msg("user removed")
			h.renderUsers(ctx, m, cb)
			return "User deleted"
		default:
			h.renderUser(ctx, m, cb, cmd.Arg)
			return ""
		}

	case CategorySpeaker:
		if cmd.Action == ActionDelete {
			if err := h.store.RemoveSpeaker(ctx, cmd.Arg); err != nil {
				h.log.Error().Err(err).Str("user_id", cmd.Arg).Msg("error removing speaker")
				return msgSomethingWrong
			}
			h.renderSpeakers(ctx, m, cb)
			return "Speaker deleted"
		}
		h.renderSpeaker(ctx, m, cb, cmd.Arg)
		return ""

	case CategoryEvent:
		if cmd.Action == ActionDelete {
			return h.deleteEvent(ctx, m, cb, cmd.Arg)
		}
		return h.renderEvent(ctx, m, cb, cmd.Arg)

	case CategoryQuestion:
		if cmd.Action == ActionDelete {
			return h.deleteQuestion(ctx, m, cb, cmd.Arg)
		}
		return h.renderQuestion(ctx, m, cb, cmd.Arg)
	}
	return "Unknown action."
}

func (h *ConferenceBot) openSection(ctx context.Context, m transport.Messenger, cb callback, section string) string {
	switch section {
	case SectionUsers:
		h.renderUsers(ctx, m, cb)
	case SectionSpeakers:
		h.renderSpeakers(ctx, m, cb)
	case SectionEvents:
		h.renderEvents(ctx, m, cb)
	case SectionQuestions:
		h.renderQuestions(ctx, m, cb)
	case SectionBroadcast:
		h.setSession(cb.userID, model.Session{State: model.StateAwaitingBroadcastText})
		h.reply(ctx, m, cb.chatID, "Enter the broadcast text (or "+labelBack+"):")
	default:
		return "Unknown section."
	}
	return ""
}

func backTo(section string) models.InlineKeyboardButton {
	return button(labelBack, token(CategoryAdmin, ActionOpen, section))
}

func backToPanel() models.InlineKeyboardButton {
	return button(labelBack, token(CategoryAdmin, ActionBack, ""))
}

func (h *ConferenceBot) renderUsers(ctx context.Context, m transport.Messenger, cb callback) {
	roles := h.store.Roles()
	ids := h.store.UserIDs()
	buttons := make([]models.InlineKeyboardButton, 0, len(ids)+1)
	for _, id := range ids {
		buttons = append(buttons, button(fmt.Sprintf("%s (%s)", id, roles[id]), token(CategoryUser, ActionDetail, id)))
	}
	buttons = append(buttons, backToPanel())
	h.render(ctx, m, cb, "Users:", inlineKeyboard(buttons...))
}

func (h *ConferenceBot) renderUser(ctx context.Context, m transport.Messenger, cb callback, userID string) {
	kb := inlineKeyboard(
		button("Make USER", token(CategoryUser, ActionDemote, userID)),
		button("Delete user", token(CategoryUser, ActionDelete, userID)),
		backTo(SectionUsers),
	)
	h.render(ctx, m, cb, fmt.Sprintf("User %s\nRole: %s", userID, h.store.Role(userID)), kb)
}

func (h *ConferenceBot) renderSpeakers(ctx context.Context, m transport.Messenger, cb callback) {
	speakers := h.store.Speakers()
	buttons := make([]models.InlineKeyboardButton, 0, len(speakers)+1)
	for _, s := range speakers {
		buttons = append(buttons, button(fmt.Sprintf("%s (%s)", s.Name, s.UserID), token(CategorySpeaker, ActionDetail, s.UserID)))
	}
	buttons = append(buttons, backToPanel())
	h.render(ctx, m, cb, "Speakers:", inlineKeyboard(buttons...))
}

func (h *ConferenceBot) renderSpeaker(ctx context.Context, m transport.Messenger, cb callback, userID string) {
	name, ok := h.store.SpeakerName(userID)
	if !ok {
		name = "-"
	}
	kb := inlineKeyboard(
		button("Delete speaker", token(CategorySpeaker, ActionDelete, userID)),
		backTo(SectionSpeakers),
	)
	h.render(ctx, m, cb, fmt.Sprintf("Speaker %s\nName: %s", userID, name), kb)
}

func (h *ConferenceBot) renderEvents(ctx context.Context, m transport.Messenger, cb callback) {
	events := h.store.Events()
	buttons := make([]models.InlineKeyboardButton, 0, len(events)+1)
	for i, e := range events {
		buttons = append(buttons, button(fmt.Sprintf("%d. %s", i+1, e.Title), token(CategoryEvent, ActionDetail, e.ID)))
	}
	buttons = append(buttons, backToPanel())
	h.render(ctx, m, cb, "Events:", inlineKeyboard(buttons...))
}

func (h *ConferenceBot) renderEvent(ctx context.Context, m transport.Messenger, cb callback, eventID string) string {
	e, index, err := h.store.Event(eventID)
	if err != nil {
		return "Event not found."
	}
	kb := inlineKeyboard(
		button("Delete event", token(CategoryEvent, ActionDelete, e.ID)),
		backTo(SectionEvents),
	)
	text := fmt.Sprintf("Event %d:\n%s\n\n%s\nSpeaker: %s", index+1, e.Title, e.Description, e.SpeakerName)
	h.render(ctx, m, cb, text, kb)
	return ""
}

func (h *ConferenceBot) deleteEvent(ctx context.Context, m transport.Messenger, cb callback, eventID string) string {
	removed, err := h.store.DeleteEvent(ctx, eventID)
	if errors.Is(err, model.ErrEventDoesNotExist) {
		return "Event not found."
	}
	if err != nil {
		h.log.Error().Err(err).Str("event_id", eventID).Msg("error deleting event")
		return msgSomethingWrong
	}
	h.log.Info().Str("event_id", removed.ID).Msg("event deleted")

	h.notifyAll(ctx, m, md(esc("Event removed:"), "\n\n", "❌ ", bold(removed.Title)), noExclude)
	h.renderEvents(ctx, m, cb)
	return "Event deleted: " + removed.Title
}

func (h *ConferenceBot) renderQuestions(ctx context.Context, m transport.Messenger, cb callback) {
	questions := h.store.Questions()
	buttons := make([]models.InlineKeyboardButton, 0, len(questions)+1)
	for i, q := range questions {
		label := fmt.Sprintf("%s Q#%d", answeredMark(q.Answered()), i+1)
		buttons = append(buttons, button(label, token(CategoryQuestion, ActionDetail, q.ID)))
	}
	buttons = append(buttons, backToPanel())
	h.render(ctx, m, cb, "Questions:", inlineKeyboard(buttons...))
}

func (h *ConferenceBot) renderQuestion(ctx context.Context, m transport.Messenger, cb callback, questionID string) string {
	q, index, err := h.store.Question(questionID)
	if err != nil {
		return "Question not found."
	}
	answer := q.AnswerText()
	if !q.Answered() {
		answer = "None"
	}
	text := fmt.Sprintf("Question #%d\nFrom: %s\nTo: %s\n\n❓ %s\n💬 Answer: %s",
		index+1,
		transport.DisplayName(ctx, m, q.From),
		transport.DisplayName(ctx, m, q.To),
		q.Question,
		answer,
	)
	kb := inlineKeyboard(
		button("Delete question", token(CategoryQuestion, ActionDelete, q.ID)),
		backTo(SectionQuestions),
	)
	h.render(ctx, m, cb, text, kb)
	return ""
}

func (h *ConferenceBot) deleteQuestion(ctx context.Context, m transport.Messenger, cb callback, questionID string) string {
	notice := "Question deleted"
	_, err := h.store.DeleteQuestion(ctx, questionID)
	switch {
	case errors.Is(err, model.ErrQuestionDoesNotExist):
		notice = "Question not found."
	case err != nil:
		h.log.Error().Err(err).Str("question_id", questionID).Msg("error deleting question")
		return msgSomethingWrong
	}
	h.renderQuestions(ctx, m, cb)
	return notice
}

func (h *ConferenceBot) sendBroadcast(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	h.clearSession(userID)
	if userID != h.operatorID {
		h.reply(ctx, m, msg.Chat.ID, msgNoPermission)
		return
	}

	delivered := h.notifyAll(ctx, m, md(esc("📣 Message from the organiser:"), "\n\n", esc(msg.Text)), userID)
	h.log.Info().Int("delivered", delivered).Msg("broadcast sent")
	h.reply(ctx, m, msg.Chat.ID, "✅ Broadcast sent to "+strconv.Itoa(delivered)+" users!")
}
