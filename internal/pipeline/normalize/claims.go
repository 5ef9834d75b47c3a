package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/types"
)

// Claim extraction runs four strategies in descending confidence order:
// structured data, service-keyword headings, contact patterns, and
// brand-plus-verb sentences. Duplicate texts are dropped, first writer wins,
// so the higher-confidence strategy keeps the claim.

const (
	confStructured = 0.95
	confHeading    = 0.7
	confContact    = 0.8
	confSentence   = 0.6

	maxClaimLen       = 280
	minSentenceWords  = 5
	maxClaimsPerEntry = 40
)

var serviceKeywords = []string{
	"service", "services", "solution", "solutions", "product", "products",
	"offer", "offering", "pricing", "plans", "consulting", "support",
}

var serviceVerbs = []string{
	"provides", "provide", "offers", "offer", "delivers", "deliver",
	"specializes", "specialize", "helps", "help", "builds", "build",
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	addrPattern  = regexp.MustCompile(`(?i)\b(located in|headquartered in|based in|offices in)\s+[A-Z][A-Za-z ,.\-]{2,60}`)
)

type claimBuilder struct {
	entryID uuid.UUID
	brandID uuid.UUID
	seen    map[string]bool
	out     []*types.ContentClaim
}

// ExtractClaims derives factual claims for one normalized page.
func ExtractClaims(entryID, brandID uuid.UUID, brandName string, page *PageExtract) []*types.ContentClaim {
	b := &claimBuilder{entryID: entryID, brandID: brandID, seen: map[string]bool{}}
	b.fromStructuredData(page.StructuredData)
	b.fromHeadings(page.Headings)
	b.fromContactPatterns(page.MainContent)
	b.fromSentences(brandName, page.MainContent)
	return b.out
}

func (b *claimBuilder) add(text, claimType, source string, confidence float64) {
	text = strings.TrimSpace(text)
	if text == "" || len(b.out) >= maxClaimsPerEntry {
		return
	}
	if len(text) > maxClaimLen {
		text = text[:maxClaimLen]
	}
	key := strings.ToLower(text)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.out = append(b.out, &types.ContentClaim{
		EntryID:    b.entryID,
		BrandID:    b.brandID,
		Text:       text,
		ClaimType:  claimType,
		Source:     source,
		Confidence: confidence,
	})
}

// fromStructuredData mines JSON-LD blocks for organization facts. Anything
// that fails to decode is skipped; markup errors are common in the wild.
func (b *claimBuilder) fromStructuredData(blocks []string) {
	for _, block := range blocks {
		var obj map[string]any
		if err := json.Unmarshal([]byte(block), &obj); err != nil {
			continue
		}
		if name, ok := obj["name"].(string); ok && name != "" {
			b.add("Organization name: "+name, types.ClaimTypeCompanyInfo, types.ClaimSourceStructuredData, confStructured)
		}
		if desc, ok := obj["description"].(string); ok && desc != "" {
			b.add(desc, types.ClaimTypeCompanyInfo, types.ClaimSourceStructuredData, confStructured)
		}
		if addr, ok := obj["address"].(map[string]any); ok {
			if loc := flattenAddress(addr); loc != "" {
				b.add("Address: "+loc, types.ClaimTypeLocation, types.ClaimSourceStructuredData, confStructured)
			}
		}
		if tel, ok := obj["telephone"].(string); ok && tel != "" {
			b.add("Telephone: "+tel, types.ClaimTypeContact, types.ClaimSourceStructuredData, confStructured)
		}
	}
}

func flattenAddress(addr map[string]any) string {
	var parts []string
	for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode", "addressCountry"} {
		if v, ok := addr[key].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

func (b *claimBuilder) fromHeadings(headings []string) {
	for _, h := range headings {
		lower := strings.ToLower(h)
		for _, kw := range serviceKeywords {
			if strings.Contains(lower, kw) {
				b.add(h, types.ClaimTypeService, types.ClaimSourceHeading, confHeading)
				break
			}
		}
	}
}

func (b *claimBuilder) fromContactPatterns(content string) {
	if email := emailPattern.FindString(content); email != "" {
		b.add("Email: "+email, types.ClaimTypeContact, types.ClaimSourcePattern, confContact)
	}
	if phone := phonePattern.FindString(content); phone != "" {
		b.add("Phone: "+strings.TrimSpace(phone), types.ClaimTypeContact, types.ClaimSourcePattern, confContact)
	}
	if loc := addrPattern.FindString(content); loc != "" {
		b.add(loc, types.ClaimTypeLocation, types.ClaimSourcePattern, confContact)
	}
}

// fromSentences keeps sentences that name the brand together with a service
// verb. These are the weakest claims, so they come last and get the lowest
// confidence.
func (b *claimBuilder) fromSentences(brandName, content string) {
	if brandName == "" {
		return
	}
	lowerBrand := strings.ToLower(brandName)
	for _, sentence := range splitSentences(content) {
		words := strings.Fields(sentence)
		if len(words) < minSentenceWords {
			continue
		}
		lower := strings.ToLower(sentence)
		if !strings.Contains(lower, lowerBrand) {
			continue
		}
		for _, verb := range serviceVerbs {
			if strings.Contains(lower, " "+verb+" ") {
				b.add(sentence, types.ClaimTypeBrandStatement, types.ClaimSourceSentence, confSentence)
				break
			}
		}
	}
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
