package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type outgoing struct {
	chatID    int64
	messageID int
	text      string
	parseMode models.ParseMode
	markup    models.ReplyMarkup
}

// fakeMessenger records everything the bot sends.
type fakeMessenger struct {
	sent      []outgoing
	edits     []outgoing
	notices   []string
	unreached map[int64]bool
	failEdits bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{unreached: map[int64]bool{}}
}

func (f *fakeMessenger) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	chatID := p.ChatID.(int64)
	if f.unreached[chatID] {
		return nil, errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, outgoing{chatID: chatID, text: p.Text, parseMode: p.ParseMode, markup: p.ReplyMarkup})
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	if f.failEdits {
		return nil, errors.New("Bad Request: message can't be edited")
	}
	f.edits = append(f.edits, outgoing{chatID: p.ChatID.(int64), messageID: p.MessageID, text: p.Text, markup: p.ReplyMarkup})
	return &models.Message{ID: p.MessageID}, nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, p *bot.AnswerCallbackQueryParams) (bool, error) {
	f.notices = append(f.notices, p.Text)
	return true, nil
}

func (f *fakeMessenger) GetChat(_ context.Context, p *bot.GetChatParams) (*models.ChatFullInfo, error) {
	return nil, errors.New("Bad Request: chat not found")
}

func (f *fakeMessenger) to(chatID int64) []outgoing {
	var out []outgoing
	for _, o := range f.sent {
		if o.chatID == chatID {
			out = append(out, o)
		}
	}
	return out
}

func (f *fakeMessenger) last(chatID int64) outgoing {
	out := f.to(chatID)
	if len(out) == 0 {
		return outgoing{}
	}
	return out[len(out)-1]
}

func (f *fakeMessenger) received(chatID int64, substr string) bool {
	for _, o := range f.to(chatID) {
		if strings.Contains(o.text, substr) {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) lastNotice() string {
	if len(f.notices) == 0 {
		return ""
	}
	return f.notices[len(f.notices)-1]
}

func (f *fakeMessenger) lastEdit() outgoing {
	if len(f.edits) == 0 {
		return outgoing{}
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeMessenger) reset() {
	f.sent = nil
	f.edits = nil
	f.notices = nil
}

// buttonData lists the callback data of an inline keyboard.
func buttonData(markup models.ReplyMarkup) []string {
	kb, ok := markup.(*models.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			data = append(data, b.CallbackData)
		}
	}
	return data
}
