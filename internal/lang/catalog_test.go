package lang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnglishFormat(t *testing.T) {
	c := English()

	tests := []struct {
		name string
		key  string
		args map[string]string
		want string
	}{
		{"rated with comment", "selfassessedwithcomment", map[string]string{"stars": "4", "comment": "Sounds OK"}, "Self-assessed 4 stars with comment: Sounds OK"},
		{"rated only", "selfassessed", map[string]string{"stars": "4"}, "Self-assessed 4 stars with no comment"},
		{"commented", "commented", map[string]string{"comment": "Sounds OK"}, "Commented: Sounds OK"},
		{"no args", "attemptfinished", nil, "Attempt finished"},
		{"missing key", "nope", nil, "[[nope]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Format(tt.key, tt.args))
		})
	}
}

func TestFormatDoesNotExpandArgumentText(t *testing.T) {
	c := English()
	got := c.Format("commented", map[string]string{"comment": "{comment} twice"})
	assert.Equal(t, "Commented: {comment} twice", got)
}

func TestLoadFallsBackToEnglish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("attemptfinished: \"Tentative terminée\"\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Tentative terminée", c.Format("attemptfinished", nil))
	assert.Equal(t, "Commented: ok", c.Format("commented", map[string]string{"comment": "ok"}))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("atemptfinished: \"Done\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "atemptfinished")
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("key: [unterminated"))
	assert.Error(t, err)
}
