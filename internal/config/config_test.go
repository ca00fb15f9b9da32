package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/ctxkeep/internal/server"
	"github.com/lotas/ctxkeep/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, server.DefaultPort, cfg.Port)
	assert.Len(t, cfg.Classify.Rules, 5)
	assert.Empty(t, cfg.Path)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
port: 20000
classify:
  important:
    - github.com
stopwords: [alpha, bravo]
organize:
  exclude_priority_from_domains: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20000, cfg.Port)
	assert.Equal(t, server.DefaultPort+1, cfg.APIPort)
	assert.Equal(t, []string{"github.com"}, cfg.Classify.Important)
	assert.Len(t, cfg.Classify.Rules, 5, "rules keep their defaults")
	assert.True(t, cfg.OrganizeOptions().ExcludePriorityFromDomains)
	assert.Equal(t, path, cfg.Path)

	c, err := cfg.Classifier()
	require.NoError(t, err)
	assert.True(t, c.IsPriority("https://github.com/x"))
	assert.False(t, c.IsPriority("https://mail.google.com"))

	assert.Equal(t, []string{"charlie"}, cfg.Keywords().Tokens("alpha bravo charlie"))
}

func TestLoadCustomRules(t *testing.T) {
	path := writeConfig(t, `
classify:
  rules:
    - category: research
      domains: [arxiv.org]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	c, err := cfg.Classifier()
	require.NoError(t, err)

	cat, err := c.Classify("https://arxiv.org/abs/1")
	require.NoError(t, err)
	assert.Equal(t, types.CategoryResearch, cat)
	cat, _ = c.Classify("https://amazon.com")
	assert.Equal(t, types.CategoryOther, cat)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "port: [not a number"))
	assert.Error(t, err)
}

func TestLoadRejectsBadSkipPattern(t *testing.T) {
	_, err := Load(writeConfig(t, "classify:\n  skip: ['[unclosed']\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CTXKEEP_DB", "/tmp/x.db")
	t.Setenv("CTXKEEP_PROFILE", "work")
	t.Setenv("CTXKEEP_PORT", "31000")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "/tmp/x.db", cfg.DB)
	assert.Equal(t, "work", cfg.Profile)
	assert.Equal(t, 31000, cfg.Port)

	t.Setenv("CTXKEEP_PORT", "abc")
	assert.Error(t, Default().ApplyEnv())
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv("CTXKEEP_CONFIG", "/etc/ctxkeep.yaml")
	assert.Equal(t, "/etc/ctxkeep.yaml", DefaultPath())
}
