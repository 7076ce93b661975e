package handler

import "strings"

// Category is the admin-tree level or workflow a callback token belongs to.
type Category string

const (
	CategoryAsk      Category = "ask"
	CategoryAnswer   Category = "answer"
	CategoryAdmin    Category = "admin"
	CategoryUser     Category = "user"
	CategorySpeaker  Category = "speaker"
	CategoryEvent    Category = "event"
	CategoryQuestion Category = "question"
)

type Action string

const (
	ActionBack   Action = "back"
	ActionSelect Action = "select"
	ActionOpen   Action = "open"
	ActionDetail Action = "detail"
	ActionDelete Action = "delete"
	ActionDemote Action = "demote"
)

// Admin panel sections, the argument of admin/open.
const (
	SectionUsers     = "users"
	SectionSpeakers  = "speakers"
	SectionEvents    = "events"
	SectionQuestions = "questions"
	SectionBroadcast = "broadcast"
)

// Command is a parsed callback token.
type Command struct {
	Category Category
	Action   Action
	Arg      string
}

type route struct {
	token    string
	exact    bool
	category Category
	action   Action
}

// routes is matched top to bottom. A token that extends another token's
// prefix (user_to_user_ vs user_, speaker_questions_back vs speaker_) must
// be listed before it.
var routes = []route{
	{token: "ask_back", exact: true, category: CategoryAsk, action: ActionBack},
	{token: "ask_", category: CategoryAsk, action: ActionSelect},
	{token: "speaker_questions_back", exact: true, category: CategoryAnswer, action: ActionBack},
	{token: "answer_", category: CategoryAnswer, action: ActionSelect},
	{token: "admin_back", exact: true, category: CategoryAdmin, action: ActionBack},
	{token: "admin_", category: CategoryAdmin, action: ActionOpen},
	{token: "user_to_user_", category: CategoryUser, action: ActionDemote},
	{token: "user_delete_", category: CategoryUser, action: ActionDelete},
	{token: "user_", category: CategoryUser, action: ActionDetail},
	{token: "speaker_delete_", category: CategorySpeaker, action: ActionDelete},
	{token: "speaker_", category: CategorySpeaker, action: ActionDetail},
	{token: "event_delete_", category: CategoryEvent, action: ActionDelete},
	{token: "event_", category: CategoryEvent, action: ActionDetail},
	{token: "q_delete_", category: CategoryQuestion, action: ActionDelete},
	{token: "q_", category: CategoryQuestion, action: ActionDetail},
}

// ParseCommand maps a callback token to the first matching route. Prefix
// routes need a non-empty argument.
func ParseCommand(token string) (Command, bool) {
	for _, r := range routes {
		if r.exact {
			if token == r.token {
				return Command{Category: r.category, Action: r.action}, true
			}
			continue
		}
		if arg, ok := strings.CutPrefix(token, r.token); ok && arg != "" {
			return Command{Category: r.category, Action: r.action, Arg: arg}, true
		}
	}
	return Command{}, false
}

// Token renders the callback data for c, or "" when no route carries
// its category and action.
func (c Command) Token() string {
	for _, r := range routes {
		if r.category != c.Category || r.action != c.Action {
			continue
		}
		if r.exact {
			return r.token
		}
		return r.token + c.Arg
	}
	return ""
}

func token(category Category, action Action, arg string) string {
	return Command{Category: category, Action: action, Arg: arg}.Token()
}
