package certificate

import (
	"strings"
	"testing"
	"time"

	"nagarconnect/api/internal/store"
)

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(Certificate{
		Number:        "NGC-DON-2026-000042",
		RecipientName: "Asha Verma",
		RequestType:   store.RequestDonationCertificate,
		Details:       "In recognition of a generous donation toward community welfare.",
		IssuedAt:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Certificate of Donation",
		"NGC-DON-2026-000042",
		"Asha Verma",
		"14 March 2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected certificate to contain %q", want)
		}
	}
}

func TestTitleFallback(t *testing.T) {
	if got := Title("unexpected_type"); got != "Certificate of Appreciation" {
		t.Errorf("unexpected fallback title %q", got)
	}
	if got := Title(store.RequestEventStall); got != "Stall Permit" {
		t.Errorf("unexpected stall title %q", got)
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b<c>")
	if got != "a%20b%3Cc%3E" {
		t.Errorf("unexpected encoding %q", got)
	}
}
