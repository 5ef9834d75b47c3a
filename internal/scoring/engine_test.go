package scoring

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestAnalyzeDirectAndImplicit(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	m := e.Analyze("Acme's product line is excellent.")

	if !m.Mentioned {
		t.Fatalf("expected mention")
	}
	if m.MentionType != MentionExplicit {
		t.Fatalf("expected explicit mention, got %s", m.MentionType)
	}
	if m.DirectCount != 1 {
		t.Fatalf("expected 1 direct mention, got %d", m.DirectCount)
	}
	if m.ImplicitCount != 1 {
		t.Fatalf("expected 1 implicit mention (possessive), got %d", m.ImplicitCount)
	}
	if m.MentionCount != 2 {
		t.Fatalf("expected mention count 2, got %d", m.MentionCount)
	}
	if len(m.Snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(m.Snippets))
	}
	// 0.3 + 0.2*1 direct + 0.1*1 implicit + 0.1*1 snippet
	if math.Abs(m.Confidence-0.7) > 1e-9 {
		t.Fatalf("expected confidence 0.7, got %v", m.Confidence)
	}
	if m.Sentiment != SentimentPositive {
		t.Fatalf("expected positive sentiment, got %s", m.Sentiment)
	}
}

func TestAnalyzeNoMention(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	m := e.Analyze("Many companies sell widgets these days.")

	if m.Mentioned {
		t.Fatalf("expected no mention")
	}
	if m.MentionType != MentionNone {
		t.Fatalf("expected mention type none, got %s", m.MentionType)
	}
	if m.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", m.Confidence)
	}
	if len(m.Snippets) != 0 {
		t.Fatalf("expected no snippets, got %v", m.Snippets)
	}
}

func TestAnalyzeWholeWordOnly(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	// "Acmeify" must not count as a brand mention.
	m := e.Analyze("The Acmeify project is unrelated.")
	if m.Mentioned {
		t.Fatalf("substring match should not count as a mention: %+v", m)
	}
}

func TestAnalyzeDomainMention(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	m := e.Analyze("You can find more details on acme.com today.")
	if !m.Mentioned || m.MentionType != MentionExplicit {
		t.Fatalf("domain hit should be an explicit mention, got %+v", m)
	}
	// the name pattern also fires inside the domain
	if m.DirectCount != 2 {
		t.Fatalf("expected 2 direct mentions, got %d", m.DirectCount)
	}
}

func TestAnalyzeConfidenceCapped(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	m := e.Analyze("Acme is great. Acme is reliable. The Acme team works at Acme with Acme tools.")
	if m.Confidence > 0.9 {
		t.Fatalf("confidence must cap at 0.9, got %v", m.Confidence)
	}
	if math.Abs(m.Confidence-0.9) > 1e-9 {
		t.Fatalf("expected capped confidence 0.9, got %v", m.Confidence)
	}
	if len(m.Snippets) > 3 {
		t.Fatalf("snippets must cap at 3, got %d", len(m.Snippets))
	}
}

func TestSentimentScopedToBrandSentences(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	m := e.Analyze("Acme makes widgets. Globex has a bad reputation and poor support.")
	if m.Sentiment != SentimentNeutral {
		t.Fatalf("negative words outside brand sentences must not count, got %s", m.Sentiment)
	}

	m = e.Analyze("Acme is the worst. People say avoid Acme.")
	if m.Sentiment != SentimentNegative {
		t.Fatalf("expected negative sentiment, got %s", m.Sentiment)
	}
}

func TestAnalyzeMentionCountMonotonic(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	one := e.Analyze("Acme sells widgets and nothing else here.")
	two := e.Analyze("Acme sells widgets. Acme also sells gears.")
	if two.Confidence < one.Confidence {
		t.Fatalf("more mentions must not lower confidence: %v < %v", two.Confidence, one.Confidence)
	}
	if two.MentionCount <= one.MentionCount {
		t.Fatalf("expected higher mention count, got %d vs %d", two.MentionCount, one.MentionCount)
	}
}

// mentionFixture builds a uniform mentioned result for aggregation tests.
func mentionFixture(confidence float64) Mention {
	return Mention{
		Mentioned:    true,
		MentionType:  MentionExplicit,
		MentionCount: 1,
		DirectCount:  1,
		Sentiment:    SentimentPositive,
		Confidence:   confidence,
		Snippets:     []string{"snippet"},
	}
}

func TestScoreComponents(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	responses := make([]Response, 10)
	mentions := make([]Mention, 10)
	for i := range responses {
		responses[i] = Response{ID: uuid.New(), Model: "model-a", Prompt: "prompt-a", Intent: "discovery"}
		if i < 6 {
			mentions[i] = mentionFixture(0.7)
		}
	}

	res := e.Score(responses, mentions, nil)

	if res.ResponsesTotal != 10 || res.ResponsesMentioned != 6 {
		t.Fatalf("unexpected counts: %d/%d", res.ResponsesMentioned, res.ResponsesTotal)
	}
	c := res.Components
	if math.Abs(c.Presence-60) > 1e-9 {
		t.Fatalf("expected presence 60, got %v", c.Presence)
	}
	// all positive at confidence 0.7: (1*100 + 0*70) * 0.7
	if math.Abs(c.Accuracy-70) > 1e-9 {
		t.Fatalf("expected accuracy 70, got %v", c.Accuracy)
	}
	// explicit rate 0.6 over total, avg 1 mention: 0.6*80 + 1*10
	if math.Abs(c.Salience-58) > 1e-9 {
		t.Fatalf("expected salience 58, got %v", c.Salience)
	}
	// every mention has a snippet and positive sentiment
	if math.Abs(c.Authority-100) > 1e-9 {
		t.Fatalf("expected authority 100, got %v", c.Authority)
	}
	if math.Abs(c.Freshness-70) > 1e-9 {
		t.Fatalf("expected freshness placeholder 70, got %v", c.Freshness)
	}
	// single model and prompt group, no spread
	if math.Abs(c.Robustness-100) > 1e-9 {
		t.Fatalf("expected robustness 100, got %v", c.Robustness)
	}

	want := int(math.Round(60*0.25 + 70*0.20 + 58*0.20 + 100*0.15 + 70*0.10 + 100*0.10))
	if res.Overall != want {
		t.Fatalf("expected overall %d, got %d", want, res.Overall)
	}
	if res.Overall < 0 || res.Overall > 100 {
		t.Fatalf("overall out of range: %d", res.Overall)
	}
}

func TestScoreEmptyInput(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	res := e.Score(nil, nil, nil)
	if res.ResponsesTotal != 0 || res.ResponsesMentioned != 0 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Components.Freshness != freshnessPlaceholder {
		t.Fatalf("freshness placeholder missing: %v", res.Components.Freshness)
	}
	if res.Overall < 0 || res.Overall > 100 {
		t.Fatalf("overall out of range: %d", res.Overall)
	}
}

func TestScoreRobustnessPenalizesSpread(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	// model-a always mentions, model-b never does: maximal per-model spread.
	var responses []Response
	var mentions []Mention
	for i := 0; i < 4; i++ {
		responses = append(responses, Response{ID: uuid.New(), Model: "model-a", Prompt: "p", Intent: "discovery"})
		mentions = append(mentions, mentionFixture(0.7))
	}
	for i := 0; i < 4; i++ {
		responses = append(responses, Response{ID: uuid.New(), Model: "model-b", Prompt: "p", Intent: "discovery"})
		mentions = append(mentions, Mention{MentionType: MentionNone, Sentiment: SentimentNeutral})
	}

	res := e.Score(responses, mentions, nil)
	uniform := e.Score(responses[:4], mentions[:4], nil)
	if res.Components.Robustness >= uniform.Components.Robustness {
		t.Fatalf("spread must lower robustness: %v >= %v",
			res.Components.Robustness, uniform.Components.Robustness)
	}
}

func TestScoreGroupRates(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	responses := []Response{
		{ID: uuid.New(), Model: "model-a", Prompt: "p1", Intent: "discovery"},
		{ID: uuid.New(), Model: "model-a", Prompt: "p2", Intent: "trust"},
		{ID: uuid.New(), Model: "model-b", Prompt: "p1", Intent: "discovery"},
		{ID: uuid.New(), Model: "model-b", Prompt: "p2", Intent: "trust"},
	}
	mentions := []Mention{mentionFixture(0.5), mentionFixture(0.5), {}, {}}

	res := e.Score(responses, mentions, nil)
	if got := res.MentionRateByModel["model-a"]; math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("model-a rate: got %v, want 1", got)
	}
	if got := res.MentionRateByModel["model-b"]; got != 0 {
		t.Fatalf("model-b rate: got %v, want 0", got)
	}
	if got := res.MentionRateByIntent["discovery"]; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("discovery rate: got %v, want 0.5", got)
	}
}

func TestScoreCompetitorRatios(t *testing.T) {
	e := NewEngine("Acme", "acme.com")
	responses := []Response{
		{ID: uuid.New(), Model: "m", Prompt: "p", Intent: "i", Text: "Acme and Globex both sell widgets."},
		{ID: uuid.New(), Model: "m", Prompt: "p", Intent: "i", Text: "Acme is well known."},
		{ID: uuid.New(), Model: "m", Prompt: "p", Intent: "i", Text: "Nothing relevant here."},
		{ID: uuid.New(), Model: "m", Prompt: "p", Intent: "i", Text: "Nothing relevant here either."},
	}
	mentions := make([]Mention, len(responses))
	for i, r := range responses {
		mentions[i] = e.Analyze(r.Text)
	}

	res := e.Score(responses, mentions, []string{"Globex", "Initech"})
	if len(res.CompetitorRatios) != 2 {
		t.Fatalf("expected 2 competitor ratios, got %d", len(res.CompetitorRatios))
	}
	globex := res.CompetitorRatios[0]
	if globex.Competitor != "Globex" {
		t.Fatalf("expected Globex first, got %s", globex.Competitor)
	}
	if math.Abs(globex.Rate-0.25) > 1e-9 {
		t.Fatalf("globex rate: got %v, want 0.25", globex.Rate)
	}
	// brand mentioned in 2/4, globex in 1/4
	if math.Abs(globex.Ratio-2.0) > 1e-9 {
		t.Fatalf("globex ratio: got %v, want 2", globex.Ratio)
	}
	initech := res.CompetitorRatios[1]
	if initech.Rate != 0 || initech.Ratio != 0 {
		t.Fatalf("absent competitor must have zero rate and ratio, got %+v", initech)
	}
}

func TestEvidenceSortedAndCapped(t *testing.T) {
	responses := make([]Response, 7)
	mentions := make([]Mention, 7)
	for i := range responses {
		responses[i] = Response{ID: uuid.New()}
		m := mentionFixture(0.3 + float64(i)*0.05)
		m.Snippets = []string{fmt.Sprintf("snippet %d", i)}
		mentions[i] = m
	}

	out := evidence(responses, mentions)
	if len(out) != 5 {
		t.Fatalf("expected 5 evidence entries, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Confidence > out[i-1].Confidence {
			t.Fatalf("evidence not sorted by confidence desc at %d", i)
		}
	}
	if out[0].ResponseID != responses[6].ID {
		t.Fatalf("highest-confidence response must lead the evidence list")
	}
	if out[0].Snippet != "snippet 6" {
		t.Fatalf("expected first snippet of top response, got %q", out[0].Snippet)
	}
}

func TestResponseScore(t *testing.T) {
	if got := ResponseScore(Mention{}); got != 0 {
		t.Fatalf("unmentioned response must score 0, got %v", got)
	}
	if got := ResponseScore(mentionFixture(0.7)); math.Abs(got-70) > 1e-9 {
		t.Fatalf("expected 70, got %v", got)
	}
	if got := ResponseScore(mentionFixture(0.123)); math.Abs(got-12.3) > 1e-9 {
		t.Fatalf("expected 12.3, got %v", got)
	}
}

func TestStddev(t *testing.T) {
	if got := stddev(nil); got != 0 {
		t.Fatalf("stddev of empty input: got %v", got)
	}
	if got := stddev([]float64{0.5, 0.5, 0.5}); got != 0 {
		t.Fatalf("stddev of constant input: got %v", got)
	}
	got := stddev([]float64{0, 1})
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("stddev of {0,1}: got %v, want 0.5", got)
	}
}
