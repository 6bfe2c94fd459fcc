package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCredentialsForwardsKnownVars(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-123")
	t.Setenv("UNRELATED_VAR", "hello")

	creds := sessionCredentials()
	require.Contains(t, creds, "ANTHROPIC_API_KEY")
	assert.Equal(t, "sk-test-123", creds["ANTHROPIC_API_KEY"])
	assert.NotContains(t, creds, "UNRELATED_VAR")
}

func TestSessionCredentialsForwardsLookalikeNames(t *testing.T) {
	t.Setenv("MY_CUSTOM_API_KEY", "value-1")
	t.Setenv("SOME_SERVICE_TOKEN", "value-2")
	t.Setenv("DB_SECRET", "value-3")

	creds := sessionCredentials()
	assert.Equal(t, "value-1", creds["MY_CUSTOM_API_KEY"])
	assert.Equal(t, "value-2", creds["SOME_SERVICE_TOKEN"])
	assert.Equal(t, "value-3", creds["DB_SECRET"])
}

func TestSessionCredentialsSkipsEmptyValues(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	creds := sessionCredentials()
	assert.NotContains(t, creds, "GITHUB_TOKEN")
}
