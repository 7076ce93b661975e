package handler

import (
	"MeetupBot/model"
	"MeetupBot/transport"
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const msgOnlySpeakers = "⛔ Only speakers and the admin can create events."

func (h *ConferenceBot) createEventStart(ctx context.Context, m transport.Messenger, msg *models.Message) {
	if !h.store.Role(userKey(msg.From.ID)).CanCreateEvents() {
		h.reply(ctx, m, msg.Chat.ID, msgOnlySpeakers)
		return
	}
	h.setSession(msg.From.ID, model.Session{State: model.StateAwaitingEventTitle})
	h.reply(ctx, m, msg.Chat.ID, "Enter the event title (or "+labelBack+"):")
}

func (h *ConferenceBot) createEventTitle(ctx context.Context, m transport.Messenger, msg *models.Message) {
	h.setSession(msg.From.ID, model.Session{
		State: model.StateAwaitingEventDescription,
		Title: msg.Text,
	})
	h.reply(ctx, m, msg.Chat.ID, "Enter the event description (or "+labelBack+"):")
}

func (h *ConferenceBot) createEventCommit(ctx context.Context, m transport.Messenger, msg *models.Message, title string) {
	userID := msg.From.ID
	h.clearSession(userID)

	role := h.store.Role(userKey(userID))
	if !role.CanCreateEvents() {
		h.reply(ctx, m, msg.Chat.ID, msgOnlySpeakers)
		return
	}

	event, err := h.store.AddEvent(ctx, model.Event{
		Title:       title,
		Description: msg.Text,
		SpeakerID:   userKey(userID),
		SpeakerName: msg.From.FirstName,
		CreatedAt:   h.clock.Now(),
	})
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "⛔ The title or description is too long. The event was not created.",
			ReplyMarkup: MenuFor(role),
		})
		return
	case err != nil:
		h.sendError(ctx, m, msg.Chat.ID, err)
		return
	}
	h.log.Info().Str("event_id", event.ID).Int64("user_id", userID).Msg("event created")

	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "✔ Event created!",
		ReplyMarkup: MenuFor(role),
	})
	h.notifyAll(ctx, m, md(
		esc("🆕 New event added!"), "\n\n",
		bold(event.Title), "\n",
		esc(event.Description),
	), userID)
}

func (h *ConferenceBot) speakerQuestions(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	questions := h.store.QuestionsTo(userID)
	if len(questions) == 0 {
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "You have no questions.",
			ReplyMarkup: MenuFor(h.store.Role(userKey(userID))),
		})
		return
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(questions)+1)
	for i, q := range questions {
		label := fmt.Sprintf("%s Question #%d", answeredMark(q.Answered()), i+1)
		buttons = append(buttons, button(label, token(CategoryAnswer, ActionSelect, q.ID)))
	}
	buttons = append(buttons, button(labelBack, token(CategoryAnswer, ActionBack, "")))
	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "Your questions:",
		ReplyMarkup: inlineKeyboard(buttons...),
	})
}

// answerQuestionStart only accepts questions addressed to the presser.
func (h *ConferenceBot) answerQuestionStart(ctx context.Context, m transport.Messenger, cb callback, questionID string) string {
	q, _, err := h.store.Question(questionID)
	if err != nil || q.To != cb.userID {
		return "Invalid question."
	}

	h.setSession(cb.userID, model.Session{State: model.StateAwaitingAnswerText, QuestionID: q.ID})
	h.reply(ctx, m, cb.chatID, fmt.Sprintf("Question:\n%s\nEnter your answer (or %s):", q.Question, labelBack))
	return ""
}

func (h *ConferenceBot) answerQuestionFinish(ctx context.Context, m transport.Messenger, msg *models.Message, questionID string) {
	userID := msg.From.ID
	h.clearSession(userID)

	q, _, err := h.store.Question(questionID)
	if err != nil || q.To != userID {
		h.reply(ctx, m, msg.Chat.ID, "This question no longer exists.")
		return
	}
	q, err = h.store.AnswerQuestion(ctx, questionID, msg.Text, h.clock.Now())
	if errors.Is(err, model.ErrQuestionDoesNotExist) {
		h.reply(ctx, m, msg.Chat.ID, "This question no longer exists.")
		return
	}
	if err != nil {
		h.sendError(ctx, m, msg.Chat.ID, err)
		return
	}
	h.log.Info().Str("question_id", q.ID).Int64("speaker_id", userID).Msg("question answered")

	_, err = m.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: q.From,
		Text:   fmt.Sprintf("💬 Speaker's answer:\n\n❓ %s\n\n%s", q.Question, q.AnswerText()),
	})
	if err != nil {
		h.log.Debug().Err(err).Int64("asker_id", q.From).Msg("error notifying asker")
	}

	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "✔ Answer sent!",
		ReplyMarkup: MenuFor(h.store.Role(userKey(userID))),
	})
}
