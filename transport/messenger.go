//go:generate go run go.uber.org/mock/mockgen -source=messenger.go -destination=../mocks/mock_messenger.go -package=mocks
package transport

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Messenger is the part of the Telegram Bot API the handlers use.
// *bot.Bot satisfies it.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
}

var _ Messenger = (*bot.Bot)(nil)

// DisplayName resolves a user id to "@username", else the first name,
// else "id<userID>". Lookup failures fall back to the id form.
func DisplayName(ctx context.Context, m Messenger, userID int64) string {
	fallback := fmt.Sprintf("id%d", userID)
	chat, err := m.GetChat(ctx, &bot.GetChatParams{ChatID: userID})
	if err != nil || chat == nil {
		return fallback
	}
	if chat.Username != "" {
		return "@" + chat.Username
	}
	if chat.FirstName != "" {
		return chat.FirstName
	}
	return fallback
}
