package config

import "os"

// Credentials holds statically configured API keys for each provider.
// An empty key is not an error here; the adapter reports it as a failed
// result at call time.
type Credentials struct {
	Mistral   string
	Gemini    string
	Anthropic string
}

// LoadCredentials reads provider API keys from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		Mistral:   os.Getenv("MISTRAL_API_KEY"),
		Gemini:    os.Getenv("GEMINI_API_KEY"),
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
	}
}

// Missing returns the provider ids that have no credential configured.
func (c Credentials) Missing() []string {
	var missing []string
	if c.Mistral == "" {
		missing = append(missing, "mistral")
	}
	if c.Gemini == "" {
		missing = append(missing, "gemini")
	}
	if c.Anthropic == "" {
		missing = append(missing, "claude")
	}
	return missing
}
