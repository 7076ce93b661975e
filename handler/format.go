package handler

import (
	"strings"
	"unicode/utf16"

	"github.com/go-telegram/bot"
)

// maxMessageLen is Telegram's limit for one message, in UTF-16 code units.
const maxMessageLen = 4096

// Messages sent with models.ParseModeMarkdown (MarkdownV2) must escape
// every literal piece, user-supplied or not.

func esc(s string) string { return bot.EscapeMarkdown(s) }

func bold(s string) string { return "*" + bot.EscapeMarkdown(s) + "*" }

// md joins already formatted pieces.
func md(parts ...string) string { return strings.Join(parts, "") }

func answeredMark(answered bool) string {
	if answered {
		return "✅"
	}
	return "❓"
}

// entry is one list item in MarkdownV2 and in plain text.
type entry struct {
	md    string
	plain string
}

// page is the text of one outgoing message.
type page struct {
	text     string
	markdown bool
}

func textLen(s string) int { return len(utf16.Encode([]rune(s))) }

// paginate packs the header and entries into as few MarkdownV2 messages as
// fit limit. An entry that does not fit a message on its own is sent as
// plain text, cut at limit.
func paginate(header string, entries []entry, limit int) []page {
	var (
		pages []page
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			pages = append(pages, page{text: cur.String(), markdown: true})
			cur.Reset()
		}
	}

	cur.WriteString(header)
	for _, e := range entries {
		if textLen(e.md) > limit {
			flush()
			pages = append(pages, splitPlain(e.plain, limit)...)
			continue
		}
		if textLen(cur.String())+textLen(e.md) > limit {
			flush()
		}
		cur.WriteString(e.md)
	}
	flush()
	return pages
}

func splitPlain(s string, limit int) []page {
	var (
		pages []page
		cur   []rune
		n     int
	)
	for _, r := range s {
		w := len(utf16.Encode([]rune{r}))
		if n+w > limit && len(cur) > 0 {
			pages = append(pages, page{text: string(cur)})
			cur, n = cur[:0], 0
		}
		cur = append(cur, r)
		n += w
	}
	if len(cur) > 0 {
		pages = append(pages, page{text: string(cur)})
	}
	return pages
}
