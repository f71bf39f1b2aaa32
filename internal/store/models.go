package store

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Language     string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Issue statuses, ordered by lifecycle. Regression is not prevented: any
// status may be set from any other.
const (
	StatusSubmitted    = "submitted"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusResolved     = "resolved"
)

const (
	CategoryWaste        = "waste"
	CategoryRoads        = "roads"
	CategoryStreetlights = "streetlights"
	CategoryWater        = "water"
	CategoryOther        = "other"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusSubmitted, StatusAcknowledged, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

func ValidCategory(category string) bool {
	switch category {
	case CategoryWaste, CategoryRoads, CategoryStreetlights, CategoryWater, CategoryOther:
		return true
	}
	return false
}

type Issue struct {
	ID             string
	UserID         string
	UserEmail      string
	UserPhone      *string
	Title          string
	Description    *string
	Category       string
	Status         string
	Address        *string
	Latitude       *float64
	Longitude      *float64
	PhotoURL       *string
	BeforePhotoURL *string
	AfterPhotoURL  *string
	Upvotes        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}

type Notification struct {
	ID        string
	UserID    string
	IssueID   *string
	TitleEN   string
	TitleHI   string
	MessageEN string
	MessageHI string
	IsRead    bool
	CreatedAt time.Time
}

const (
	RequestDonationCertificate  = "donation_certificate"
	RequestVolunteerCertificate = "volunteer_certificate"
	RequestEventStall           = "event_stall"
	RequestEventOrganizer       = "event_organizer"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

type ApprovalRequest struct {
	ID                       string
	UserID                   string
	RequestType              string
	Status                   string
	ReferenceID              *string
	EventID                  *string
	StallDescription         *string
	ProposedEventTitle       *string
	ProposedEventDescription *string
	ProposedEventDate        *time.Time
	ProposedEventLocation    *string
	AdminNotes               *string
	ReviewedBy               *string
	ReviewedAt               *time.Time
	CertificateNumber        *string
	CertificateGeneratedAt   *time.Time
	CertificateURL           *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

type Donation struct {
	ID          string
	UserID      *string
	DonorName   string
	DonorEmail  *string
	DonorPhone  *string
	Amount      float64
	Purpose     *string
	IsAnonymous bool
	CreatedAt   time.Time
}

type Volunteer struct {
	ID           string
	UserID       string
	FullName     string
	Email        string
	Phone        *string
	Skills       *string
	Availability *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LocalStall struct {
	ID                 string
	Name               string
	Category           string
	Description        *string
	DiscountInfo       *string
	DiscountPercentage *int
	Address            *string
	Phone              *string
	Latitude           *float64
	Longitude          *float64
	PhotoURL           *string
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

type EmergencyAlert struct {
	ID        string
	TitleEN   string
	TitleHI   string
	MessageEN string
	MessageHI string
	Severity  string
	IsActive  bool
	ExpiresAt *time.Time
	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CommunityEvent struct {
	ID              string
	TitleEN         string
	TitleHI         string
	DescriptionEN   *string
	DescriptionHI   *string
	EventType       string
	Location        *string
	Latitude        *float64
	Longitude       *float64
	StartDate       time.Time
	EndDate         *time.Time
	MaxParticipants *int
	PhotoURL        *string
	IsActive        bool
	CreatedBy       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type EventRegistration struct {
	ID           string
	EventID      string
	UserID       string
	RegisteredAt time.Time
}

type Feedback struct {
	ID        string
	IssueID   string
	UserID    string
	Rating    int
	Comment   *string
	CreatedAt time.Time
}
