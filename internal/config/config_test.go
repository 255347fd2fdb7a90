package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"short fully masked", "abc", maskedValue},
		{"eight chars fully masked", "12345678", maskedValue},
		{"long shows edges", "my_long_secret_key_123", "my<" + maskedValue + ">23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.input); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMaskSecretNoLeak(t *testing.T) {
	// The mask output must never contain the original secret.
	secrets := []string{"hunter2", "correct-horse-battery", "00***"}
	for _, s := range secrets {
		masked := maskSecret(s)
		if masked != "" && strings.Contains(masked, s) {
			t.Errorf("maskSecret(%q) = %q leaks the secret", s, masked)
		}
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := Config{
		Provider:         ProviderOpenAI,
		ModelName:        "gpt-4o-mini",
		PostgresPassword: "super_secret_password",
	}

	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() = %v", err)
	}
	if strings.Contains(string(data), "super_secret_password") {
		t.Error("marshaled config leaks postgres password")
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["provider"] != ProviderOpenAI {
		t.Errorf("provider = %v, want %q", decoded["provider"], ProviderOpenAI)
	}
}

func TestStringMasksPassword(t *testing.T) {
	cfg := Config{PostgresPassword: "super_secret_password"}
	if s := cfg.String(); strings.Contains(s, "super_secret_password") {
		t.Errorf("String() leaks password: %s", s)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"openai", ProviderOpenAI, "gpt-4o-mini", "openai/gpt-4o-mini"},
		{"googleai", ProviderGoogleAI, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"already qualified", ProviderOpenAI, "openai/gpt-4o", "openai/gpt-4o"},
		{"unknown provider defaults to openai", "", "gpt-4o", "openai/gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTierLimit(t *testing.T) {
	cfg := &Config{TierLimits: map[string]int{"basic": 50, "premium": 200, "vip": 0}}

	tests := []struct {
		tier string
		want int
	}{
		{"basic", 50},
		{"premium", 200},
		{"vip", 0},
		{"PREMIUM", 200},
		{"unknown", 50},
		{"", 50},
	}

	for _, tt := range tests {
		if got := cfg.TierLimit(tt.tier); got != tt.want {
			t.Errorf("TierLimit(%q) = %d, want %d", tt.tier, got, tt.want)
		}
	}
}
