package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitI18n(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "active.en.toml"),
		[]byte("filter_all = \"All\"\npage_label = \"Page {{.Page}}\"\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "active.ja.toml"),
		[]byte("filter_all = \"すべて\"\n"), 0600))

	require.NoError(t, InitI18n(dir))

	assert.Equal(t, "All", T(GetLocalizer("en"), "filter_all"))
	assert.Equal(t, "すべて", T(GetLocalizer("ja"), "filter_all"))
	assert.Equal(t, "Page 2", TWithData(GetLocalizer("en"), "page_label", map[string]interface{}{"Page": 2}))
	// falls back to the message ID
	assert.Equal(t, "missing_key", T(GetLocalizer("en"), "missing_key"))
	assert.Equal(t, "All", T(nil, "filter_all"))
}

func TestInitI18n_MissingFilesDoNotFail(t *testing.T) {
	require.NoError(t, InitI18n(t.TempDir()))
	assert.Equal(t, "filter_all", T(GetLocalizer("en"), "filter_all"))
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, "ja", MatchLanguage("ja-JP,ja;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", MatchLanguage("en-US"))
	assert.Equal(t, "en", MatchLanguage(""))
	assert.Equal(t, "en", MatchLanguage("fr-FR"))
}
