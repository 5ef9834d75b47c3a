package sample

import (
	"fmt"
	"strings"

	"github.com/brightloop/geoscore-backend/internal/jobs/runtime"
	"github.com/brightloop/geoscore-backend/internal/pkg/envutil"
	"github.com/brightloop/geoscore-backend/internal/types"
)

const (
	IntentDiscovery      = "discovery"
	IntentServices       = "services"
	IntentRecommendation = "recommendation"
	IntentComparison     = "comparison"
	IntentTrust          = "trust"
)

// BuildPayload derives the sampling plan for a brand: the model list from
// SAMPLE_MODELS and a fixed prompt battery spanning the intents the scoring
// breakdown groups by. Prompts deliberately avoid feeding the model the
// brand's domain so mention detection measures recall, not echo.
func BuildPayload(brand *types.Brand) runtime.SamplePayload {
	name := brand.Name
	prompts := []runtime.SamplePrompt{
		{Text: fmt.Sprintf("What do you know about %s?", name), Intent: IntentDiscovery},
		{Text: fmt.Sprintf("What products or services does %s offer?", name), Intent: IntentServices},
		{Text: fmt.Sprintf("Would you recommend %s? Why or why not?", name), Intent: IntentRecommendation},
		{Text: fmt.Sprintf("How does %s compare to other companies in its space?", name), Intent: IntentComparison},
		{Text: fmt.Sprintf("Is %s a reputable company?", name), Intent: IntentTrust},
	}
	for _, competitor := range brand.CompetitorNames() {
		prompts = append(prompts, runtime.SamplePrompt{
			Text:   fmt.Sprintf("Which is better, %s or %s?", name, competitor),
			Intent: IntentComparison,
		})
	}
	return runtime.SamplePayload{
		Models:  Models(),
		Prompts: prompts,
	}
}

// Models returns the configured model list, comma separated in SAMPLE_MODELS.
func Models() []string {
	raw := envutil.Str("SAMPLE_MODELS", "gpt-4o-mini")
	var out []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
