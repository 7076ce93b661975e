package handler

import (
	"MeetupBot/auth"
	"MeetupBot/model"
	"MeetupBot/transport"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (h *ConferenceBot) showEvents(ctx context.Context, m transport.Messenger, msg *models.Message) {
	role := h.store.Role(userKey(msg.From.ID))
	events := h.store.Events()
	if len(events) == 0 {
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "No events yet.",
			ReplyMarkup: MenuFor(role),
		})
		return
	}

	entries := make([]entry, 0, len(events))
	for i, e := range events {
		entries = append(entries, entry{
			md: md(
				bold(fmt.Sprintf("%d. %s", i+1, e.Title)), "\n",
				esc(e.Description), "\n",
				esc("🎤 Speaker: "+e.SpeakerName), "\n\n",
			),
			plain: fmt.Sprintf("%d. %s\n%s\n🎤 Speaker: %s", i+1, e.Title, e.Description, e.SpeakerName),
		})
	}
	h.sendPages(ctx, m, msg.Chat.ID, paginate(bold("📅 Events:")+"\n\n", entries, maxMessageLen), MenuFor(role))
}

// sendPages sends each page in order; the keyboard goes on the last one.
func (h *ConferenceBot) sendPages(ctx context.Context, m transport.Messenger, chatID int64, pages []page, kb models.ReplyMarkup) {
	for i, p := range pages {
		params := &bot.SendMessageParams{ChatID: chatID, Text: p.text}
		if p.markdown {
			params.ParseMode = models.ParseModeMarkdown
		}
		if i == len(pages)-1 {
			params.ReplyMarkup = kb
		}
		h.send(ctx, m, params)
	}
}

func (h *ConferenceBot) chooseSpeaker(ctx context.Context, m transport.Messenger, msg *models.Message) {
	speakers := h.store.Speakers()
	if len(speakers) == 0 {
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "No speakers yet.",
			ReplyMarkup: MenuFor(h.store.Role(userKey(msg.From.ID))),
		})
		return
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(speakers)+1)
	for _, s := range speakers {
		buttons = append(buttons, button(s.Name, token(CategoryAsk, ActionSelect, s.UserID)))
	}
	buttons = append(buttons, button(labelBack, token(CategoryAsk, ActionBack, "")))
	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "Choose a speaker:",
		ReplyMarkup: inlineKeyboard(buttons...),
	})
}

func (h *ConferenceBot) askQuestionStart(ctx context.Context, m transport.Messenger, cb callback, arg string) string {
	speakerID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "Invalid speaker."
	}
	if _, ok := h.store.SpeakerName(arg); !ok {
		return "Speaker not found."
	}

	h.setSession(cb.userID, model.Session{State: model.StateAwaitingQuestionText, SpeakerID: speakerID})
	h.reply(ctx, m, cb.chatID, "Enter your question (or "+labelBack+"):")
	return ""
}

func (h *ConferenceBot) sendQuestionToSpeaker(ctx context.Context, m transport.Messenger, msg *models.Message, speakerID int64) {
	userID := msg.From.ID
	h.clearSession(userID)

	q, err := h.store.AddQuestion(ctx, model.Question{
		From:      userID,
		To:        speakerID,
		Question:  msg.Text,
		CreatedAt: h.clock.Now(),
	})
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "⛔ The question is too long. It was not sent.",
			ReplyMarkup: MenuFor(h.store.Role(userKey(userID))),
		})
		return
	case err != nil:
		h.sendError(ctx, m, msg.Chat.ID, err)
		return
	}
	h.log.Info().Str("question_id", q.ID).Int64("from", userID).Int64("to", speakerID).Msg("question asked")

	// best effort: the question is recorded even if the speaker is unreachable
	sender := transport.DisplayName(ctx, m, userID)
	_, err = m.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: speakerID,
		Text:   fmt.Sprintf("❓ New question from %s:\n\n%s", sender, q.Question),
	})
	if err != nil {
		h.log.Debug().Err(err).Int64("speaker_id", speakerID).Msg("error notifying speaker")
	}

	h.send(ctx, m, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "✔ Question sent!",
		ReplyMarkup: MenuFor(h.store.Role(userKey(userID))),
	})
}

func (h *ConferenceBot) userAnswers(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	role := h.store.Role(userKey(userID))
	answered := h.store.AnsweredQuestionsFrom(userID)
	if len(answered) == 0 {
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "You have no answers yet.",
			ReplyMarkup: MenuFor(role),
		})
		return
	}

	entries := make([]entry, 0, len(answered))
	for _, q := range answered {
		entries = append(entries, entry{
			md: md(
				bold("Question:"), " ", esc(q.Question), "\n",
				bold("Answer:"), " ", esc(q.AnswerText()), "\n\n",
			),
			plain: fmt.Sprintf("Question: %s\nAnswer: %s", q.Question, q.AnswerText()),
		})
	}
	h.sendPages(ctx, m, msg.Chat.ID, paginate(bold("📨 Your answers:")+"\n\n", entries, maxMessageLen), MenuFor(role))
}

func (h *ConferenceBot) requestSpeaker(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	if h.store.Role(userKey(userID)).CanCreateEvents() {
		h.reply(ctx, m, msg.Chat.ID, "You already have speaker access.")
		return
	}

	if wait, blocked := h.verifier.Blocked(h.store.Attempts(userKey(userID))); blocked {
		h.reply(ctx, m, msg.Chat.ID, fmt.Sprintf("⛔ Blocked. Try again in %d s.", auth.WaitSeconds(wait)))
		return
	}

	h.setSession(userID, model.Session{State: model.StateAwaitingSecret})
	h.reply(ctx, m, msg.Chat.ID, "Enter the speaker password (or "+labelBack+"):")
}

func (h *ConferenceBot) checkSpeakerPassword(ctx context.Context, m transport.Messenger, msg *models.Message) {
	userID := msg.From.ID
	key := userKey(userID)
	attempts := h.store.Attempts(key)
	_, wasBlocked := h.verifier.Blocked(attempts)

	result := h.verifier.Submit(attempts, msg.Text)
	switch result.Outcome {
	case auth.OutcomeGranted:
		h.clearSession(userID)
		if err := h.store.PromoteToSpeaker(ctx, key, msg.From.FirstName); err != nil {
			h.sendError(ctx, m, msg.Chat.ID, err)
			return
		}
		h.log.Info().Int64("user_id", userID).Msg("user promoted to speaker")
		h.send(ctx, m, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        "🎤 You are now a speaker!",
			ReplyMarkup: MenuFor(model.RoleSpeaker),
		})

	case auth.OutcomeRetry:
		if err := h.store.SetAttempts(ctx, key, result.Attempts); err != nil {
			h.clearSession(userID)
			h.sendError(ctx, m, msg.Chat.ID, err)
			return
		}
		h.reply(ctx, m, msg.Chat.ID, fmt.Sprintf(
			"❌ Wrong password! Attempts left: %d\nTry again or press %s.", result.Remaining, labelBack))

	case auth.OutcomeBlocked:
		h.clearSession(userID)
		if wasBlocked {
			h.reply(ctx, m, msg.Chat.ID, fmt.Sprintf("⛔ Blocked. Try again in %d s.", auth.WaitSeconds(result.Wait)))
			return
		}
		if err := h.store.SetAttempts(ctx, key, result.Attempts); err != nil {
			h.sendError(ctx, m, msg.Chat.ID, err)
			return
		}
		h.log.Info().Int64("user_id", userID).Msg("speaker password blocked")
		h.reply(ctx, m, msg.Chat.ID, fmt.Sprintf("⛔ Wrong password %d times. Blocked for %d minutes.",
			h.verifier.MaxTries(), int(h.verifier.BlockWindow().Minutes())))
	}
}
