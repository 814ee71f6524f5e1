package release

import (
	"fmt"
	"sort"
)

// GroupBy names the attribute actions are grouped by when listed.
type GroupBy string

const (
	GroupByContentType GroupBy = "contentType"
	GroupByLocale      GroupBy = "locale"
	GroupByAction      GroupBy = "action"
)

// ParseGroupBy validates a user supplied grouping key. Empty defaults to
// content type.
func ParseGroupBy(value string) (GroupBy, error) {
	switch GroupBy(value) {
	case "":
		return GroupByContentType, nil
	case GroupByContentType, GroupByLocale, GroupByAction:
		return GroupBy(value), nil
	}
	return "", Validation(fmt.Sprintf("unsupported group by %q", value), map[string]interface{}{
		"group_by": value,
		"allowed":  []string{string(GroupByContentType), string(GroupByLocale), string(GroupByAction)},
	})
}

// Key returns the group key of an action.
func (g GroupBy) Key(action Action) string {
	switch g {
	case GroupByLocale:
		return action.Locale
	case GroupByAction:
		return string(action.Type)
	default:
		return action.ContentType
	}
}

// ActionGroup is one bucket of a grouped listing.
type ActionGroup struct {
	Key     string   `json:"key"`
	Actions []Action `json:"actions"`
}

// GroupActions buckets actions by the given key. Groups are sorted by key and
// actions keep their input order inside a group.
func GroupActions(actions []Action, by GroupBy) []ActionGroup {
	buckets := make(map[string][]Action)
	for _, action := range actions {
		key := by.Key(action)
		buckets[key] = append(buckets[key], action)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]ActionGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, ActionGroup{Key: key, Actions: buckets[key]})
	}
	return groups
}
