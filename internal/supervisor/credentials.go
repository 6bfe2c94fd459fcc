package supervisor

import (
	"os"
	"strings"
)

// knownCredentialEnvVars are forwarded into every new agent session
// verbatim when present in the core process's own environment, so an
// agent's CLI tool can authenticate without per-team configuration.
var knownCredentialEnvVars = []string{
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"GEMINI_API_KEY",
	"GOOGLE_API_KEY",
	"AZURE_OPENAI_API_KEY",
	"COHERE_API_KEY",
	"HUGGINGFACE_API_KEY",
	"MISTRAL_API_KEY",
	"TOGETHER_API_KEY",
	"REPLICATE_API_TOKEN",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"GITHUB_TOKEN",
	"GITLAB_TOKEN",
}

// sessionCredentials collects the subset of the core process's own
// environment that should be forwarded into a freshly created agent
// session: known API key variables, plus anything else whose name looks
// like a credential (so operators don't have to keep this list exhaustive).
func sessionCredentials() map[string]string {
	creds := make(map[string]string)

	for _, name := range knownCredentialEnvVars {
		if v := os.Getenv(name); v != "" {
			creds[name] = v
		}
	}

	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		key := parts[0]
		if _, ok := creds[key]; ok {
			continue
		}
		lower := strings.ToLower(key)
		if strings.Contains(lower, "api_key") || strings.Contains(lower, "apikey") ||
			strings.Contains(lower, "_token") || strings.Contains(lower, "_secret") {
			creds[key] = parts[1]
		}
	}

	return creds
}
