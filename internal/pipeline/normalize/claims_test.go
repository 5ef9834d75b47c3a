package normalize

import (
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/types"
)

func claimsByType(claims []*types.ContentClaim, claimType string) []*types.ContentClaim {
	var out []*types.ContentClaim
	for _, c := range claims {
		if c.ClaimType == claimType {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractClaimsStructuredData(t *testing.T) {
	page := &PageExtract{
		StructuredData: []string{
			`{"@type":"Organization","name":"Acme Widgets","description":"Industrial widget maker",` +
				`"telephone":"+1 555 123 4567",` +
				`"address":{"streetAddress":"1 Main St","addressLocality":"Springfield","addressCountry":"US"}}`,
			`not json at all`,
		},
	}
	claims := ExtractClaims(uuid.New(), uuid.New(), "Acme", page)

	info := claimsByType(claims, types.ClaimTypeCompanyInfo)
	if len(info) != 2 {
		t.Fatalf("expected 2 company_info claims, got %d", len(info))
	}
	loc := claimsByType(claims, types.ClaimTypeLocation)
	if len(loc) != 1 || loc[0].Text != "Address: 1 Main St, Springfield, US" {
		t.Fatalf("location claim: got %+v", loc)
	}
	contact := claimsByType(claims, types.ClaimTypeContact)
	if len(contact) != 1 {
		t.Fatalf("expected 1 contact claim, got %d", len(contact))
	}
	for _, c := range claims {
		if c.Source != types.ClaimSourceStructuredData || c.Confidence != 0.95 {
			t.Fatalf("structured claim has wrong source or confidence: %+v", c)
		}
	}
}

func TestExtractClaimsHeadings(t *testing.T) {
	page := &PageExtract{
		Headings: []string{"Our Services", "About the Team", "Pricing Plans"},
	}
	claims := ExtractClaims(uuid.New(), uuid.New(), "Acme", page)

	svc := claimsByType(claims, types.ClaimTypeService)
	if len(svc) != 2 {
		t.Fatalf("expected 2 service claims, got %d: %+v", len(svc), svc)
	}
	for _, c := range svc {
		if c.Source != types.ClaimSourceHeading || c.Confidence != 0.7 {
			t.Fatalf("heading claim has wrong source or confidence: %+v", c)
		}
	}
}

func TestExtractClaimsContactPatterns(t *testing.T) {
	page := &PageExtract{
		MainContent: "Reach us at sales@acme.example or call +1 555 123 4567. " +
			"We are headquartered in Springfield, Ohio.",
	}
	claims := ExtractClaims(uuid.New(), uuid.New(), "Acme", page)

	contact := claimsByType(claims, types.ClaimTypeContact)
	if len(contact) != 2 {
		t.Fatalf("expected email and phone claims, got %d: %+v", len(contact), contact)
	}
	loc := claimsByType(claims, types.ClaimTypeLocation)
	if len(loc) != 1 {
		t.Fatalf("expected 1 location claim, got %d", len(loc))
	}
	for _, c := range contact {
		if c.Source != types.ClaimSourcePattern || c.Confidence != 0.8 {
			t.Fatalf("pattern claim has wrong source or confidence: %+v", c)
		}
	}
}

func TestExtractClaimsBrandSentences(t *testing.T) {
	page := &PageExtract{
		MainContent: "Acme provides industrial widgets to clients worldwide. " +
			"Short Acme provides. " +
			"The weather is nice today and skies are clear. " +
			"Acme helps manufacturers reduce downtime every single day.",
	}
	claims := ExtractClaims(uuid.New(), uuid.New(), "Acme", page)

	stmts := claimsByType(claims, types.ClaimTypeBrandStatement)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 brand statements, got %d: %+v", len(stmts), stmts)
	}
	for _, c := range stmts {
		if c.Source != types.ClaimSourceSentence || c.Confidence != 0.6 {
			t.Fatalf("sentence claim has wrong source or confidence: %+v", c)
		}
	}
}

func TestExtractClaimsDeduplicates(t *testing.T) {
	entryID, brandID := uuid.New(), uuid.New()
	page := &PageExtract{
		Headings: []string{"Our Services", "our services"},
	}
	claims := ExtractClaims(entryID, brandID, "Acme", page)
	if len(claims) != 1 {
		t.Fatalf("case-insensitive duplicates must collapse, got %d", len(claims))
	}
	if claims[0].EntryID != entryID || claims[0].BrandID != brandID {
		t.Fatalf("claim ownership wrong: %+v", claims[0])
	}
}
