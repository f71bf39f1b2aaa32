package email

import (
	"strings"
	"testing"

	"nagarconnect/api/internal/i18n"
)

func TestRenderStatusUpdateEnglish(t *testing.T) {
	subject, html, err := RenderStatusUpdate(StatusUpdate{
		IssueTitle: "Broken streetlight",
		NewStatus:  "in_progress",
		Language:   i18n.LangEN,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != `Status Update: Your issue "Broken streetlight"` {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(html, "In Progress") {
		t.Fatalf("expected status label in body")
	}
	if !strings.Contains(html, "#f97316") {
		t.Fatalf("expected in_progress badge color")
	}
	if strings.Contains(html, "resolved!") {
		t.Fatalf("congratulatory block should only render for resolved")
	}
}

func TestRenderStatusUpdateHindi(t *testing.T) {
	subject, html, err := RenderStatusUpdate(StatusUpdate{
		IssueTitle: "Overflowing bin",
		NewStatus:  "acknowledged",
		Language:   i18n.LangHI,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "स्थिति अपडेट") {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(html, "स्वीकार किया गया") {
		t.Fatalf("expected hindi status label in body")
	}
}

func TestRenderStatusUpdateResolvedBlock(t *testing.T) {
	_, html, err := RenderStatusUpdate(StatusUpdate{
		IssueTitle: "Pothole on MG Road",
		NewStatus:  "resolved",
		Language:   i18n.LangEN,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Your issue has been resolved!") {
		t.Fatalf("expected congratulatory block for resolved")
	}
	if !strings.Contains(html, "#22c55e") {
		t.Fatalf("expected resolved badge color")
	}
}
