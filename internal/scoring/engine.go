package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Component weights. Overall is always round of the weighted sum, so the
// weights must total 1.
const (
	weightPresence   = 0.25
	weightAccuracy   = 0.20
	weightSalience   = 0.20
	weightAuthority  = 0.15
	weightFreshness  = 0.10
	weightRobustness = 0.10
)

// freshnessPlaceholder stands in for a real recency computation, which is
// pending product definition. Do not derive anything from it.
const freshnessPlaceholder = 70.0

const (
	maxSnippets = 3
	maxEvidence = 5
)

const (
	MentionExplicit = "explicit"
	MentionImplicit = "implicit"
	MentionNone     = "none"
)

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

var positiveKeywords = []string{
	"excellent", "great", "best", "leading", "trusted", "reliable",
	"innovative", "recommend", "recommended", "top", "quality", "outstanding",
}

var negativeKeywords = []string{
	"bad", "poor", "unreliable", "avoid", "worst", "scam",
	"slow", "expensive", "complaint", "disappointing", "mediocre", "overpriced",
}

// Implicit mention templates; %s is replaced with the quoted brand name.
var implicitTemplates = []string{
	`%s's`,
	`the %s`,
	`at %s`,
	`with %s`,
}

type Response struct {
	ID     uuid.UUID
	Model  string
	Prompt string
	Intent string
	Text   string
}

// Mention is the per-response detection result.
type Mention struct {
	Mentioned     bool
	MentionType   string
	MentionCount  int
	DirectCount   int
	ImplicitCount int
	Sentiment     string
	Confidence    float64
	Snippets      []string
}

type Components struct {
	Presence   float64 `json:"presence"`
	Accuracy   float64 `json:"accuracy"`
	Salience   float64 `json:"salience"`
	Authority  float64 `json:"authority"`
	Freshness  float64 `json:"freshness"`
	Robustness float64 `json:"robustness"`
}

type Evidence struct {
	ResponseID uuid.UUID `json:"response_id"`
	Confidence float64   `json:"confidence"`
	Snippet    string    `json:"snippet,omitempty"`
}

// CompetitorRatio compares the brand's mention rate to one competitor's.
// Ratio is 0 when the competitor never appears in any response.
type CompetitorRatio struct {
	Competitor string  `json:"competitor"`
	Rate       float64 `json:"rate"`
	Ratio      float64 `json:"ratio"`
}

type Result struct {
	Overall             int                `json:"overall"`
	Components          Components         `json:"components"`
	MentionRateByModel  map[string]float64 `json:"mention_rate_by_model"`
	MentionRateByPrompt map[string]float64 `json:"mention_rate_by_prompt"`
	MentionRateByIntent map[string]float64 `json:"mention_rate_by_intent"`
	CompetitorRatios    []CompetitorRatio  `json:"competitor_ratios,omitempty"`
	Evidence            []Evidence         `json:"evidence,omitempty"`
	ResponsesTotal      int                `json:"responses_total"`
	ResponsesMentioned  int                `json:"responses_mentioned"`
}

// Engine scores one brand. It holds the compiled detection patterns so a
// scoring pass over many responses compiles each regexp once.
type Engine struct {
	brandName string
	domain    string
	direct    []*regexp.Regexp
	implicit  []*regexp.Regexp
}

func NewEngine(brandName string, domain string) *Engine {
	e := &Engine{
		brandName: strings.TrimSpace(brandName),
		domain:    strings.TrimSpace(domain),
	}
	if e.brandName != "" {
		e.direct = append(e.direct, wholeWord(e.brandName))
	}
	if e.domain != "" {
		e.direct = append(e.direct, wholeWord(e.domain))
	}
	if e.brandName != "" {
		quoted := regexp.QuoteMeta(e.brandName)
		for _, tmpl := range implicitTemplates {
			pattern := `(?i)\b` + strings.Replace(tmpl, "%s", quoted, 1) + `\b`
			if re, err := regexp.Compile(pattern); err == nil {
				e.implicit = append(e.implicit, re)
			}
		}
	}
	return e
}

func wholeWord(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

// Analyze runs mention detection, sentiment, and snippet extraction for a
// single model response.
func (e *Engine) Analyze(text string) Mention {
	direct := 0
	for _, re := range e.direct {
		direct += len(re.FindAllStringIndex(text, -1))
	}
	implicit := 0
	for _, re := range e.implicit {
		implicit += len(re.FindAllStringIndex(text, -1))
	}

	m := Mention{
		MentionType:   MentionNone,
		DirectCount:   direct,
		ImplicitCount: implicit,
		MentionCount:  direct + implicit,
		Sentiment:     SentimentNeutral,
	}
	if m.MentionCount == 0 {
		return m
	}
	m.Mentioned = true
	if direct > 0 {
		m.MentionType = MentionExplicit
	} else {
		m.MentionType = MentionImplicit
	}

	m.Snippets = e.snippets(text)
	m.Sentiment = e.sentiment(text)
	m.Confidence = math.Min(0.9, 0.3+0.2*float64(direct)+0.1*float64(implicit)+0.1*float64(len(m.Snippets)))
	return m
}

// sentiment is restricted to sentences that mention the brand by name, so a
// negative aside about a competitor does not pollute the brand's reading.
func (e *Engine) sentiment(text string) string {
	lowerBrand := strings.ToLower(e.brandName)
	positives, negatives := 0, 0
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		if lowerBrand == "" || !strings.Contains(lower, lowerBrand) {
			continue
		}
		for _, kw := range positiveKeywords {
			positives += strings.Count(lower, kw)
		}
		for _, kw := range negativeKeywords {
			negatives += strings.Count(lower, kw)
		}
	}
	switch {
	case positives > negatives:
		return SentimentPositive
	case negatives > positives:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func (e *Engine) snippets(text string) []string {
	lowerBrand := strings.ToLower(e.brandName)
	lowerDomain := strings.ToLower(e.domain)
	var out []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		hit := (lowerBrand != "" && strings.Contains(lower, lowerBrand)) ||
			(lowerDomain != "" && strings.Contains(lower, lowerDomain))
		if !hit {
			continue
		}
		out = append(out, strings.TrimSpace(sentence))
		if len(out) >= maxSnippets {
			break
		}
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// Score aggregates per-response mentions into the composite result.
// competitors may be nil when competitor analysis was not requested.
func (e *Engine) Score(responses []Response, mentions []Mention, competitors []string) Result {
	total := len(responses)
	res := Result{
		MentionRateByModel:  map[string]float64{},
		MentionRateByPrompt: map[string]float64{},
		MentionRateByIntent: map[string]float64{},
		ResponsesTotal:      total,
	}
	if total == 0 || len(mentions) != total {
		res.Components.Freshness = freshnessPlaceholder
		res.Overall = overall(res.Components)
		return res
	}

	mentioned := 0
	explicit := 0
	positives, neutrals, negatives := 0, 0, 0
	confidenceSum := 0.0
	mentionCountSum := 0
	withSnippets := 0
	for _, m := range mentions {
		if !m.Mentioned {
			continue
		}
		mentioned++
		confidenceSum += m.Confidence
		mentionCountSum += m.MentionCount
		if m.MentionType == MentionExplicit {
			explicit++
		}
		if len(m.Snippets) > 0 {
			withSnippets++
		}
		switch m.Sentiment {
		case SentimentPositive:
			positives++
		case SentimentNegative:
			negatives++
		default:
			neutrals++
		}
	}
	res.ResponsesMentioned = mentioned

	c := Components{Freshness: freshnessPlaceholder}
	c.Presence = float64(mentioned) / float64(total) * 100

	if mentioned > 0 {
		posRate := float64(positives) / float64(mentioned)
		neuRate := float64(neutrals) / float64(mentioned)
		avgConfidence := confidenceSum / float64(mentioned)
		c.Accuracy = math.Min(100, (posRate*100+neuRate*70)*avgConfidence)

		explicitRate := float64(explicit) / float64(total)
		avgMentions := float64(mentionCountSum) / float64(mentioned)
		c.Salience = math.Min(100, explicitRate*80+math.Min(avgMentions, 3)*10)

		snippetRate := float64(withSnippets) / float64(mentioned)
		sentimentQuality := (float64(positives)*1.0 + float64(neutrals)*0.7 + float64(negatives)*0.3) / float64(mentioned)
		c.Authority = snippetRate*50 + sentimentQuality*50
	}

	byModel := groupRates(responses, mentions, func(r Response) string { return r.Model })
	byPrompt := groupRates(responses, mentions, func(r Response) string { return r.Prompt })
	byIntent := groupRates(responses, mentions, func(r Response) string { return r.Intent })
	res.MentionRateByModel = byModel
	res.MentionRateByPrompt = byPrompt
	res.MentionRateByIntent = byIntent

	spread := stddev(values(byModel)) + stddev(values(byPrompt))
	c.Robustness = math.Max(0, 100-spread*200)

	res.Components = c
	res.Overall = overall(c)
	res.CompetitorRatios = e.competitorRatios(responses, c.Presence/100, competitors)
	res.Evidence = evidence(responses, mentions)
	return res
}

func overall(c Components) int {
	sum := c.Presence*weightPresence +
		c.Accuracy*weightAccuracy +
		c.Salience*weightSalience +
		c.Authority*weightAuthority +
		c.Freshness*weightFreshness +
		c.Robustness*weightRobustness
	return int(math.Round(sum))
}

func groupRates(responses []Response, mentions []Mention, key func(Response) string) map[string]float64 {
	totals := map[string]int{}
	hits := map[string]int{}
	for i, r := range responses {
		k := key(r)
		totals[k]++
		if mentions[i].Mentioned {
			hits[k]++
		}
	}
	out := make(map[string]float64, len(totals))
	for k, n := range totals {
		out[k] = float64(hits[k]) / float64(n)
	}
	return out
}

func (e *Engine) competitorRatios(responses []Response, brandRate float64, competitors []string) []CompetitorRatio {
	if len(competitors) == 0 {
		return nil
	}
	out := make([]CompetitorRatio, 0, len(competitors))
	for _, name := range competitors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		re := wholeWord(name)
		hits := 0
		for _, r := range responses {
			if re.MatchString(r.Text) {
				hits++
			}
		}
		rate := float64(hits) / float64(len(responses))
		ratio := 0.0
		if rate > 0 {
			ratio = brandRate / rate
		}
		out = append(out, CompetitorRatio{Competitor: name, Rate: rate, Ratio: ratio})
	}
	return out
}

// evidence picks the most confidently mentioned responses, first snippet as
// the displayable quote.
func evidence(responses []Response, mentions []Mention) []Evidence {
	type scored struct {
		idx        int
		confidence float64
	}
	var hits []scored
	for i, m := range mentions {
		if m.Mentioned {
			hits = append(hits, scored{idx: i, confidence: m.Confidence})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].confidence > hits[b].confidence })
	if len(hits) > maxEvidence {
		hits = hits[:maxEvidence]
	}
	out := make([]Evidence, 0, len(hits))
	for _, h := range hits {
		ev := Evidence{
			ResponseID: responses[h.idx].ID,
			Confidence: h.confidence,
		}
		if snips := mentions[h.idx].Snippets; len(snips) > 0 {
			ev.Snippet = snips[0]
		}
		out = append(out, ev)
	}
	return out
}

// ResponseScore is the per-response score written back onto mentioned
// responses: detection confidence on the 0-100 scale.
func ResponseScore(m Mention) float64 {
	if !m.Mentioned {
		return 0
	}
	return math.Round(m.Confidence*1000) / 10
}

func values(m map[string]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
