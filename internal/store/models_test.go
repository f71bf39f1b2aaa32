package store

import "testing"

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusSubmitted, StatusAcknowledged, StatusInProgress, StatusResolved} {
		if !ValidStatus(status) {
			t.Errorf("expected %q to be valid", status)
		}
	}
	for _, status := range []string{"", "closed", "RESOLVED", "done"} {
		if ValidStatus(status) {
			t.Errorf("expected %q to be invalid", status)
		}
	}
}

func TestValidCategory(t *testing.T) {
	for _, category := range []string{CategoryWaste, CategoryRoads, CategoryStreetlights, CategoryWater, CategoryOther} {
		if !ValidCategory(category) {
			t.Errorf("expected %q to be valid", category)
		}
	}
	if ValidCategory("plumbing") {
		t.Error("expected unknown category to be invalid")
	}
}

func TestCertificateTypeCodes(t *testing.T) {
	for _, requestType := range []string{
		RequestDonationCertificate,
		RequestVolunteerCertificate,
		RequestEventStall,
		RequestEventOrganizer,
	} {
		code, ok := certTypeCodes[requestType]
		if !ok {
			t.Errorf("missing certificate code for %q", requestType)
			continue
		}
		if len(code) != 3 {
			t.Errorf("code for %q should be three letters, got %q", requestType, code)
		}
	}
}
