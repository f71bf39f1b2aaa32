package app

import (
	"time"

	"nagarconnect/api/internal/store"
)

// Response shaping. Timestamps go out as RFC 3339 UTC, nullable columns
// as JSON null.

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timestampPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timestamp(*t)
}

func issuePayload(issue store.Issue) map[string]any {
	return map[string]any{
		"id":             issue.ID,
		"userId":         issue.UserID,
		"title":          issue.Title,
		"description":    issue.Description,
		"category":       issue.Category,
		"status":         issue.Status,
		"address":        issue.Address,
		"latitude":       issue.Latitude,
		"longitude":      issue.Longitude,
		"photoUrl":       issue.PhotoURL,
		"beforePhotoUrl": issue.BeforePhotoURL,
		"afterPhotoUrl":  issue.AfterPhotoURL,
		"upvotes":        issue.Upvotes,
		"createdAt":      timestamp(issue.CreatedAt),
		"updatedAt":      timestamp(issue.UpdatedAt),
		"resolvedAt":     timestampPtr(issue.ResolvedAt),
	}
}

func issuePayloads(issues []store.Issue) []map[string]any {
	items := make([]map[string]any, 0, len(issues))
	for _, issue := range issues {
		items = append(items, issuePayload(issue))
	}
	return items
}

func notificationPayloads(notifications []store.Notification) []map[string]any {
	items := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, map[string]any{
			"id":        n.ID,
			"issueId":   n.IssueID,
			"titleEn":   n.TitleEN,
			"titleHi":   n.TitleHI,
			"messageEn": n.MessageEN,
			"messageHi": n.MessageHI,
			"isRead":    n.IsRead,
			"createdAt": timestamp(n.CreatedAt),
		})
	}
	return items
}

func approvalPayload(request store.ApprovalRequest) map[string]any {
	return map[string]any{
		"id":                       request.ID,
		"userId":                   request.UserID,
		"requestType":              request.RequestType,
		"status":                   request.Status,
		"referenceId":              request.ReferenceID,
		"eventId":                  request.EventID,
		"stallDescription":         request.StallDescription,
		"proposedEventTitle":       request.ProposedEventTitle,
		"proposedEventDescription": request.ProposedEventDescription,
		"proposedEventDate":        timestampPtr(request.ProposedEventDate),
		"proposedEventLocation":    request.ProposedEventLocation,
		"adminNotes":               request.AdminNotes,
		"reviewedBy":               request.ReviewedBy,
		"reviewedAt":               timestampPtr(request.ReviewedAt),
		"certificateNumber":        request.CertificateNumber,
		"certificateGeneratedAt":   timestampPtr(request.CertificateGeneratedAt),
		"certificateUrl":           request.CertificateURL,
		"createdAt":                timestamp(request.CreatedAt),
	}
}

func approvalPayloads(requests []store.ApprovalRequest) []map[string]any {
	items := make([]map[string]any, 0, len(requests))
	for _, request := range requests {
		items = append(items, approvalPayload(request))
	}
	return items
}

func donationPayload(donation store.Donation) map[string]any {
	return map[string]any{
		"id":          donation.ID,
		"donorName":   donation.DonorName,
		"amount":      donation.Amount,
		"purpose":     donation.Purpose,
		"isAnonymous": donation.IsAnonymous,
		"createdAt":   timestamp(donation.CreatedAt),
	}
}

func donationPayloads(donations []store.Donation) []map[string]any {
	items := make([]map[string]any, 0, len(donations))
	for _, donation := range donations {
		items = append(items, donationPayload(donation))
	}
	return items
}

func volunteerPayload(volunteer store.Volunteer) map[string]any {
	return map[string]any{
		"id":           volunteer.ID,
		"userId":       volunteer.UserID,
		"fullName":     volunteer.FullName,
		"email":        volunteer.Email,
		"phone":        volunteer.Phone,
		"skills":       volunteer.Skills,
		"availability": volunteer.Availability,
		"isActive":     volunteer.IsActive,
		"createdAt":    timestamp(volunteer.CreatedAt),
	}
}

func volunteerPayloads(volunteers []store.Volunteer) []map[string]any {
	items := make([]map[string]any, 0, len(volunteers))
	for _, volunteer := range volunteers {
		items = append(items, volunteerPayload(volunteer))
	}
	return items
}

func stallPayload(stall store.LocalStall) map[string]any {
	return map[string]any{
		"id":                 stall.ID,
		"name":               stall.Name,
		"category":           stall.Category,
		"description":        stall.Description,
		"discountInfo":       stall.DiscountInfo,
		"discountPercentage": stall.DiscountPercentage,
		"address":            stall.Address,
		"phone":              stall.Phone,
		"latitude":           stall.Latitude,
		"longitude":          stall.Longitude,
		"photoUrl":           stall.PhotoURL,
		"isActive":           stall.IsActive,
		"createdAt":          timestamp(stall.CreatedAt),
	}
}

func stallPayloads(stalls []store.LocalStall) []map[string]any {
	items := make([]map[string]any, 0, len(stalls))
	for _, stall := range stalls {
		items = append(items, stallPayload(stall))
	}
	return items
}

func alertPayload(alert store.EmergencyAlert) map[string]any {
	return map[string]any{
		"id":        alert.ID,
		"titleEn":   alert.TitleEN,
		"titleHi":   alert.TitleHI,
		"messageEn": alert.MessageEN,
		"messageHi": alert.MessageHI,
		"severity":  alert.Severity,
		"isActive":  alert.IsActive,
		"expiresAt": timestampPtr(alert.ExpiresAt),
		"createdAt": timestamp(alert.CreatedAt),
	}
}

func alertPayloads(alerts []store.EmergencyAlert) []map[string]any {
	items := make([]map[string]any, 0, len(alerts))
	for _, alert := range alerts {
		items = append(items, alertPayload(alert))
	}
	return items
}

func eventPayload(event store.CommunityEvent) map[string]any {
	return map[string]any{
		"id":              event.ID,
		"titleEn":         event.TitleEN,
		"titleHi":         event.TitleHI,
		"descriptionEn":   event.DescriptionEN,
		"descriptionHi":   event.DescriptionHI,
		"eventType":       event.EventType,
		"location":        event.Location,
		"latitude":        event.Latitude,
		"longitude":       event.Longitude,
		"startDate":       timestamp(event.StartDate),
		"endDate":         timestampPtr(event.EndDate),
		"maxParticipants": event.MaxParticipants,
		"photoUrl":        event.PhotoURL,
		"isActive":        event.IsActive,
		"createdAt":       timestamp(event.CreatedAt),
	}
}

func eventPayloads(events []store.CommunityEvent) []map[string]any {
	items := make([]map[string]any, 0, len(events))
	for _, event := range events {
		items = append(items, eventPayload(event))
	}
	return items
}

func registrationPayload(registration store.EventRegistration) map[string]any {
	return map[string]any{
		"id":           registration.ID,
		"eventId":      registration.EventID,
		"userId":       registration.UserID,
		"registeredAt": timestamp(registration.RegisteredAt),
	}
}

func registrationPayloads(registrations []store.EventRegistration) []map[string]any {
	items := make([]map[string]any, 0, len(registrations))
	for _, registration := range registrations {
		items = append(items, registrationPayload(registration))
	}
	return items
}
