package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/derailed/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTheme_EmptyPathDefaults(t *testing.T) {
	theme, err := LoadTheme("")
	require.NoError(t, err)
	assert.Equal(t, DefaultColors(), theme)
}

func TestLoadTheme_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
inboxpilot:
  body:
    bgColor: "#ffffff"
  chat:
    userColor: blue
`), 0600))

	theme, err := LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, Color("#ffffff"), theme.Body.BgColor)
	assert.Equal(t, Color("blue"), theme.Chat.UserColor)
	assert.Equal(t, DefaultColors().Body.FgColor, theme.Body.FgColor)
}

func TestLoadTheme_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTheme(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noSection := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(noSection, []byte("gmailTUI:\n  body: {}\n"), 0600))
	_, err = LoadTheme(noSection)
	assert.ErrorContains(t, err, "missing inboxpilot section")

	blank := filepath.Join(dir, "blank.yaml")
	require.NoError(t, os.WriteFile(blank, []byte("inboxpilot:\n  chat:\n    userColor: \"\"\n"), 0600))
	_, err = LoadTheme(blank)
	assert.ErrorContains(t, err, "chat.userColor")
}

func TestSaveTheme_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes", "mine.yaml")
	theme := DefaultColors()
	theme.Status.BusyColor = "#123456"

	require.NoError(t, SaveTheme(theme, path))
	loaded, err := LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, theme, loaded)
}

func TestColor(t *testing.T) {
	assert.Equal(t, "#aabbcc", Color("#aabbcc").String())
	assert.Equal(t, "-", DefaultColor.String())
	assert.Equal(t, tcell.ColorDefault, TransparentColor.Color())
	assert.Equal(t, tcell.ColorDefault, Color("").Color())
	assert.NotEqual(t, tcell.ColorDefault, Color("red").Color())
}
