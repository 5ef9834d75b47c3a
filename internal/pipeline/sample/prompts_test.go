package sample

import (
	"strings"
	"testing"

	"github.com/brightloop/geoscore-backend/internal/types"
)

func TestBuildPayloadPromptBattery(t *testing.T) {
	brand := &types.Brand{
		Name:        "Acme",
		Domain:      "acme.com",
		Competitors: types.MustJSON([]string{"Globex"}),
	}
	payload := BuildPayload(brand)

	if len(payload.Models) == 0 {
		t.Fatalf("expected at least one model")
	}
	// five fixed intents plus one comparison per competitor
	if len(payload.Prompts) != 6 {
		t.Fatalf("expected 6 prompts, got %d", len(payload.Prompts))
	}
	intents := map[string]int{}
	for _, p := range payload.Prompts {
		intents[p.Intent]++
		if !strings.Contains(p.Text, "Acme") {
			t.Fatalf("prompt must name the brand: %q", p.Text)
		}
		if strings.Contains(p.Text, "acme.com") {
			t.Fatalf("prompt must not leak the domain: %q", p.Text)
		}
	}
	for _, intent := range []string{IntentDiscovery, IntentServices, IntentRecommendation, IntentTrust} {
		if intents[intent] != 1 {
			t.Fatalf("intent %s: got %d prompts", intent, intents[intent])
		}
	}
	if intents[IntentComparison] != 2 {
		t.Fatalf("expected brand + competitor comparison prompts, got %d", intents[IntentComparison])
	}
}

func TestModelsFromEnv(t *testing.T) {
	t.Setenv("SAMPLE_MODELS", " gpt-4o , gpt-4o-mini ,")
	models := Models()
	if len(models) != 2 || models[0] != "gpt-4o" || models[1] != "gpt-4o-mini" {
		t.Fatalf("unexpected models: %v", models)
	}
}
