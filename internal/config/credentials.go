package config

import (
	"fmt"
	"strings"
)

// tokenEnvVars lists, per backend, the environment variables checked for an
// access token, in order of preference.
var tokenEnvVars = map[string][]string{
	BackendHuggingFace: {"HUGGINGFACE_TOKEN", "HF_TOKEN"},
	BackendOpenAI:      {"OPENAI_API_KEY"},
}

// TokenEnvVars returns the variables consulted for backend. Backends that
// need no token return nil.
func TokenEnvVars(backend string) []string {
	return tokenEnvVars[backend]
}

// ResolveCredentials reads the backend's token from the environment into the
// config. It is called once at the start of a run; nothing re-reads the
// environment afterwards.
func (c *Config) ResolveCredentials(getenv func(string) string) {
	c.Token, c.TokenSource = "", ""
	for _, name := range TokenEnvVars(c.Model.Backend) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			c.Token, c.TokenSource = v, name
			return
		}
	}
}

// RequireCredential fails when the configured backend needs a token and
// none was resolved.
func (c *Config) RequireCredential() error {
	vars := TokenEnvVars(c.Model.Backend)
	if len(vars) == 0 || c.Token != "" {
		return nil
	}
	return fmt.Errorf("%w: set %s to use the %s backend", ErrMissingCredential, strings.Join(vars, " or "), c.Model.Backend)
}
