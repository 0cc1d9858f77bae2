package assistant

import "strings"

// Action is one of the intents the assistant knows how to route.
type Action string

const (
	ActionFetchLatest Action = "fetch_latest"
	ActionDeleteEmail Action = "delete_email"
	ActionHelp        Action = "help"
	ActionDraftReply  Action = "draft_reply"
	ActionUnknown     Action = "unknown"
)

// Actions lists the closed vocabulary in prompt order.
var Actions = []Action{
	ActionFetchLatest,
	ActionDeleteEmail,
	ActionHelp,
	ActionDraftReply,
	ActionUnknown,
}

// ParseAction reports whether s names an action exactly (case-sensitive, as
// the model is instructed to answer).
func ParseAction(s string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return ActionUnknown, false
}

// String implements fmt.Stringer
func (a Action) String() string { return string(a) }

// Field selects which header a delete criterion is matched against.
type Field string

const (
	FieldSubject Field = "subject"
	FieldFrom    Field = "from"
)

// Valid reports whether f is one of the two allowed fields.
func (f Field) Valid() bool {
	return f == FieldSubject || f == FieldFrom
}

// DeleteCriterion describes which email a delete_email action targets.
type DeleteCriterion struct {
	Keyword string `json:"keyword"`
	Field   Field  `json:"field"`
}

// Valid reports whether the criterion is usable: a non-blank keyword and a
// known field.
func (c DeleteCriterion) Valid() bool {
	return strings.TrimSpace(c.Keyword) != "" && c.Field.Valid()
}

// Source records which strategy produced an interpretation.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
)

// Interpretation is the resolved action for a command. DeleteParams is only
// set for ActionDeleteEmail and only when it validates.
type Interpretation struct {
	Action       Action           `json:"action"`
	DeleteParams *DeleteCriterion `json:"deleteParams,omitempty"`
	Source       Source           `json:"-"`
}

// normalize enforces the DeleteParams invariant.
func (i Interpretation) normalize() Interpretation {
	if i.Action != ActionDeleteEmail || i.DeleteParams == nil || !i.DeleteParams.Valid() {
		i.DeleteParams = nil
	}
	return i
}
