package handler

import (
	"MeetupBot/transport"
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// noExclude is passed to notifyAll when every user should be reached.
// Telegram never assigns id 0.
const noExclude int64 = 0

// notifyAll sends a MarkdownV2 text to every known user except exclude.
// Delivery failures (blocked bot, deleted account) are logged and
// skipped; nothing is retried. It returns the number of users reached.
func (h *ConferenceBot) notifyAll(ctx context.Context, m transport.Messenger, text string, exclude int64) int {
	delivered := 0
	for _, id := range h.store.UserIDs() {
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			h.log.Warn().Str("user_id", id).Msg("skipping non-numeric user id")
			continue
		}
		if userID == exclude {
			continue
		}
		_, err = m.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    userID,
			Text:      text,
			ParseMode: models.ParseModeMarkdown,
		})
		if err != nil {
			h.log.Debug().Err(err).Int64("user_id", userID).Msg("error delivering notification")
			continue
		}
		delivered++
	}
	return delivered
}
