package i18n

import "testing"

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel("resolved", LangEN); got != "Resolved" {
		t.Errorf("expected Resolved, got %s", got)
	}
	if got := StatusLabel("resolved", LangHI); got != "हल किया गया" {
		t.Errorf("unexpected hindi label: %s", got)
	}
	if got := StatusLabel("weird", LangEN); got != "weird" {
		t.Errorf("unknown status should pass through, got %s", got)
	}
}

func TestStatusNotice(t *testing.T) {
	for _, status := range []string{"acknowledged", "in_progress", "resolved"} {
		notice, ok := StatusNotice(status)
		if !ok {
			t.Fatalf("expected notice for %s", status)
		}
		if notice.TitleEN == "" || notice.TitleHI == "" || notice.MessageEN == "" || notice.MessageHI == "" {
			t.Errorf("notice for %s has empty fields: %+v", status, notice)
		}
	}
	if _, ok := StatusNotice("submitted"); ok {
		t.Error("submitted should not have a transition notice")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("hi") != LangHI {
		t.Error("hi should normalize to LangHI")
	}
	if Normalize("fr") != LangEN {
		t.Error("unknown languages should fall back to English")
	}
}

func TestSubmissionNotice(t *testing.T) {
	notice := SubmissionNotice("Pothole on Main St")
	if notice.MessageEN != `Your issue "Pothole on Main St" has been submitted successfully.` {
		t.Errorf("unexpected english message: %s", notice.MessageEN)
	}
	if notice.TitleHI == "" || notice.MessageHI == "" {
		t.Error("hindi fields must be populated")
	}
}
