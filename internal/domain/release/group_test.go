package release

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupActions(t *testing.T) {
	actions := []Action{
		{ID: "1", ContentType: "page", Locale: "fr", Type: ActionPublish},
		{ID: "2", ContentType: "article", Locale: "en", Type: ActionUnpublish},
		{ID: "3", ContentType: "page", Locale: "en", Type: ActionPublish},
	}

	byType := GroupActions(actions, GroupByContentType)
	require.Len(t, byType, 2)
	require.Equal(t, "article", byType[0].Key)
	require.Equal(t, "page", byType[1].Key)
	require.Equal(t, "1", byType[1].Actions[0].ID)
	require.Equal(t, "3", byType[1].Actions[1].ID)

	byLocale := GroupActions(actions, GroupByLocale)
	require.Equal(t, []string{"en", "fr"}, []string{byLocale[0].Key, byLocale[1].Key})

	byAction := GroupActions(actions, GroupByAction)
	require.Equal(t, "publish", byAction[0].Key)
	require.Len(t, byAction[0].Actions, 2)
}

func TestParseGroupBy(t *testing.T) {
	by, err := ParseGroupBy("")
	require.NoError(t, err)
	require.Equal(t, GroupByContentType, by)

	by, err = ParseGroupBy("locale")
	require.NoError(t, err)
	require.Equal(t, GroupByLocale, by)

	_, err = ParseGroupBy("author")
	require.True(t, IsValidation(err))
}
