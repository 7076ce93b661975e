package handler

import (
	"MeetupBot/model"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Reply keyboard labels. Incoming text equal to a label triggers it.
const (
	labelViewEvents    = "📅 View events"
	labelAskSpeaker    = "❓ Ask a speaker"
	labelMyAnswers     = "📨 My answers"
	labelBecomeSpeaker = "🎤 Become a speaker"
	labelCreateEvent   = "➕ Create event"
	labelMyQuestions   = "📨 My questions"
	labelAdminPanel    = "🔧 Admin panel"
	labelBack          = "🔙 Back"
)

var backKeys = map[string]struct{}{
	"🔙 Back": {},
	"⬅ Back": {},
	"Back":   {},
}

func isBack(text string) bool {
	_, ok := backKeys[strings.TrimSpace(text)]
	return ok
}

var menus = map[model.Role][]string{
	model.RoleUser:    {labelViewEvents, labelAskSpeaker, labelMyAnswers, labelBecomeSpeaker, labelBack},
	model.RoleSpeaker: {labelCreateEvent, labelViewEvents, labelMyQuestions, labelBack},
	model.RoleAdmin:   {labelCreateEvent, labelViewEvents, labelAdminPanel, labelBack},
}

// MenuLabels lists the actions of a role's menu in display order.
func MenuLabels(role model.Role) []string {
	labels, ok := menus[role]
	if !ok {
		labels = menus[model.RoleUser]
	}
	return labels
}

// MenuFor builds the reply keyboard of a role, one action per row.
func MenuFor(role model.Role) *models.ReplyKeyboardMarkup {
	labels := MenuLabels(role)
	rows := make([][]models.KeyboardButton, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []models.KeyboardButton{{Text: label}})
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard:       rows,
		ResizeKeyboard: true,
	}
}

func adminPanelKeyboard() *models.InlineKeyboardMarkup {
	return inlineKeyboard(
		button("Users", token(CategoryAdmin, ActionOpen, SectionUsers)),
		button("Speakers", token(CategoryAdmin, ActionOpen, SectionSpeakers)),
		button("Events", token(CategoryAdmin, ActionOpen, SectionEvents)),
		button("Questions", token(CategoryAdmin, ActionOpen, SectionQuestions)),
		button("Broadcast", token(CategoryAdmin, ActionOpen, SectionBroadcast)),
		button(labelBack, token(CategoryAdmin, ActionBack, "")),
	)
}

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

// inlineKeyboard puts every button on its own row.
func inlineKeyboard(buttons ...models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []models.InlineKeyboardButton{b})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
