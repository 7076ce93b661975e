package handler

import (
	"MeetupBot/mocks"
	"MeetupBot/model"
	"errors"
	"fmt"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// sentTo matches a MarkdownV2 SendMessage to one chat.
type sentTo int64

func (s sentTo) Matches(x any) bool {
	p, ok := x.(*bot.SendMessageParams)
	return ok && p.ChatID == int64(s) && p.ParseMode == models.ParseModeMarkdown
}

func (s sentTo) String() string { return fmt.Sprintf("markdown message to chat %d", int64(s)) }

func TestNotifyAll_SkipsFailedRecipients(t *testing.T) {
	e := newTestEnv(t)
	for _, id := range []string{"1", "2", "3", "4"} {
		_, _, err := e.store.EnsureRole(e.ctx, id, model.RoleUser)
		require.NoError(t, err)
	}

	ctrl := gomock.NewController(t)
	m := mocks.NewMockMessenger(ctrl)
	gomock.InOrder(
		m.EXPECT().SendMessage(gomock.Any(), sentTo(2)).Return(nil, errors.New("Forbidden: bot was blocked by the user")),
		m.EXPECT().SendMessage(gomock.Any(), sentTo(3)).Return(&models.Message{ID: 1}, nil),
		m.EXPECT().SendMessage(gomock.Any(), sentTo(4)).Return(&models.Message{ID: 2}, nil),
	)

	delivered := e.bot.notifyAll(e.ctx, m, "hello", 1)
	assert.Equal(t, 2, delivered)
}

func TestNotifyAll_NoExcludeReachesEveryone(t *testing.T) {
	e := newTestEnv(t)
	for _, id := range []string{"10", "9"} {
		_, _, err := e.store.EnsureRole(e.ctx, id, model.RoleUser)
		require.NoError(t, err)
	}

	ctrl := gomock.NewController(t)
	m := mocks.NewMockMessenger(ctrl)
	gomock.InOrder(
		m.EXPECT().SendMessage(gomock.Any(), sentTo(9)).Return(&models.Message{}, nil),
		m.EXPECT().SendMessage(gomock.Any(), sentTo(10)).Return(&models.Message{}, nil),
	)

	assert.Equal(t, 2, e.bot.notifyAll(e.ctx, m, "hello", noExclude))
}
