package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelOutput_WrappedObject(t *testing.T) {
	got, err := ParseModelOutput(`here you go {"action":"fetch_latest"} thanks`)
	require.NoError(t, err)
	assert.Equal(t, Interpretation{Action: ActionFetchLatest, Source: SourceModel}, got)
}

func TestParseModelOutput_CodeFence(t *testing.T) {
	text := "```json\n{\n  \"action\": \"delete_email\",\n  \"deleteParams\": {\"keyword\": \" Spam offer \", \"field\": \"subject\"}\n}\n```"
	got, err := ParseModelOutput(text)
	require.NoError(t, err)
	assert.Equal(t, ActionDeleteEmail, got.Action)
	require.NotNil(t, got.DeleteParams)
	assert.Equal(t, DeleteCriterion{Keyword: "Spam offer", Field: FieldSubject}, *got.DeleteParams)
}

func TestParseModelOutput_InvalidDeleteParamsDropped(t *testing.T) {
	tests := map[string]string{
		"bad field":      `{"action":"delete_email","deleteParams":{"keyword":"spam","field":"cc"}}`,
		"blank keyword":  `{"action":"delete_email","deleteParams":{"keyword":"   ","field":"from"}}`,
		"numeric key":    `{"action":"delete_email","deleteParams":{"keyword":42,"field":"from"}}`,
		"missing field":  `{"action":"delete_email","deleteParams":{"keyword":"spam"}}`,
		"not an object":  `{"action":"delete_email","deleteParams":"spam"}`,
		"null params":    `{"action":"delete_email","deleteParams":null}`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseModelOutput(text)
			require.NoError(t, err)
			assert.Equal(t, ActionDeleteEmail, got.Action)
			assert.Nil(t, got.DeleteParams)
		})
	}
}

func TestParseModelOutput_ParamsOnlyWithDelete(t *testing.T) {
	got, err := ParseModelOutput(`{"action":"help","deleteParams":{"keyword":"x","field":"from"}}`)
	require.NoError(t, err)
	assert.Equal(t, ActionHelp, got.Action)
	assert.Nil(t, got.DeleteParams)
}

func TestParseModelOutput_UnknownActionCoerced(t *testing.T) {
	for _, text := range []string{
		`{"action":"archive"}`,
		`{"action":7}`,
		`{}`,
		`{"action":"FETCH_LATEST"}`,
	} {
		got, err := ParseModelOutput(text)
		require.NoError(t, err, text)
		assert.Equal(t, ActionUnknown, got.Action, text)
	}
}

func TestParseModelOutput_Failures(t *testing.T) {
	_, err := ParseModelOutput("no braces at all")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = ParseModelOutput("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = ParseModelOutput(`{"action": "help",}`)
	assert.Error(t, err)

	_, err = ParseModelOutput(`{"action":"help"} and also {"action":"unknown"}`)
	assert.Error(t, err, "first { to last } spans two objects and must not decode")
}
