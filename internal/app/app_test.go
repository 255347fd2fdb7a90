package app

import (
	"context"
	"testing"

	"github.com/taysluxe/tayai/internal/config"
	"github.com/taysluxe/tayai/internal/log"
)

func TestSetupRequiresPostgres(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderOpenAI}

	if _, err := Setup(context.Background(), cfg, log.NewNop()); err == nil {
		t.Error("expected error without postgres configuration")
	}
}

func TestCloseIsSafeOnEmptyApp(t *testing.T) {
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
