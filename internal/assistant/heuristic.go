package assistant

import (
	"regexp"
	"strings"
)

// Classify maps free text to an action using keyword rules. It is pure and
// total: anything it does not recognise is ActionUnknown. Rules are checked
// in order and the first match wins.
func Classify(command string) Interpretation {
	lower := strings.ToLower(command)

	switch {
	case strings.Contains(lower, "read") && strings.Contains(lower, "email"):
		return Interpretation{Action: ActionFetchLatest, Source: SourceHeuristic}
	case containsAny(lower, "delete", "remove"):
		// Coarse guess; the dispatcher refines it with ExtractDeletionParams.
		return Interpretation{
			Action:       ActionDeleteEmail,
			DeleteParams: &DeleteCriterion{Keyword: command, Field: FieldSubject},
			Source:       SourceHeuristic,
		}
	case containsAny(lower, "help", "command"):
		return Interpretation{Action: ActionHelp, Source: SourceHeuristic}
	case containsAny(lower, "reply", "respond"):
		return Interpretation{Action: ActionDraftReply, Source: SourceHeuristic}
	default:
		return Interpretation{Action: ActionUnknown, Source: SourceHeuristic}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var (
	fromPattern   = regexp.MustCompile(`(?i)from\s+(.+)`)
	deletePattern = regexp.MustCompile(`(?i)(?:delete|remove)\s+(?:email\s+)?(.+)`)
)

// ExtractDeletionParams pulls a keyword and field out of a delete command.
// "from <x>" targets the sender, "delete [email] <x>" the subject, and any
// other text is used whole as a subject keyword. It returns false only when
// the input is blank.
func ExtractDeletionParams(text string) (DeleteCriterion, bool) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return DeleteCriterion{}, false
	}

	if m := fromPattern.FindStringSubmatch(normalized); m != nil && strings.TrimSpace(m[1]) != "" {
		return DeleteCriterion{Keyword: strings.TrimSpace(m[1]), Field: FieldFrom}, true
	}
	if m := deletePattern.FindStringSubmatch(normalized); m != nil && strings.TrimSpace(m[1]) != "" {
		return DeleteCriterion{Keyword: strings.TrimSpace(m[1]), Field: FieldSubject}, true
	}
	return DeleteCriterion{Keyword: normalized, Field: FieldSubject}, true
}
