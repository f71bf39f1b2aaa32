// Package i18n holds the portal's bilingual (English/Hindi) status labels
// and notification texts.
package i18n

type Language string

const (
	LangEN Language = "en"
	LangHI Language = "hi"
)

func Normalize(lang string) Language {
	if Language(lang) == LangHI {
		return LangHI
	}
	return LangEN
}

type label struct {
	en string
	hi string
}

var statusLabels = map[string]label{
	"submitted":    {en: "Submitted", hi: "सबमिट किया गया"},
	"acknowledged": {en: "Acknowledged", hi: "स्वीकार किया गया"},
	"in_progress":  {en: "In Progress", hi: "प्रगति में"},
	"resolved":     {en: "Resolved", hi: "हल किया गया"},
}

var statusColors = map[string]string{
	"submitted":    "#3b82f6",
	"acknowledged": "#eab308",
	"in_progress":  "#f97316",
	"resolved":     "#22c55e",
}

// StatusLabel returns the localized display name of a status. Unknown
// statuses fall through unchanged.
func StatusLabel(status string, lang Language) string {
	entry, ok := statusLabels[status]
	if !ok {
		return status
	}
	if lang == LangHI {
		return entry.hi
	}
	return entry.en
}

func StatusColor(status string) string {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return "#6b7280"
}

// Notice is a bilingual in-app notification body. Both languages are always
// stored; the client picks one at render time.
type Notice struct {
	TitleEN   string
	TitleHI   string
	MessageEN string
	MessageHI string
}

var statusNotices = map[string]Notice{
	"acknowledged": {
		TitleEN:   "Status Update: ACKNOWLEDGED",
		TitleHI:   "स्थिति अपडेट: स्वीकृत",
		MessageEN: "Your issue has been acknowledged by the authorities.",
		MessageHI: "आपकी समस्या को अधिकारियों ने स्वीकार कर लिया है।",
	},
	"in_progress": {
		TitleEN:   "Status Update: IN PROGRESS",
		TitleHI:   "स्थिति अपडेट: प्रगति पर",
		MessageEN: "Work has started on your issue.",
		MessageHI: "आपकी समस्या पर काम शुरू हो गया है।",
	},
	"resolved": {
		TitleEN:   "Status Update: RESOLVED",
		TitleHI:   "स्थिति अपडेट: समाधान",
		MessageEN: "Your issue has been resolved!",
		MessageHI: "आपकी समस्या का समाधान हो गया है!",
	},
}

// StatusNotice returns the notification body for a status transition, or
// false for statuses that carry no notification (submitted has its own
// submission notice).
func StatusNotice(status string) (Notice, bool) {
	notice, ok := statusNotices[status]
	return notice, ok
}

// ApprovalNotice is written when an admin reviews an approval request.
func ApprovalNotice(approved bool) Notice {
	if approved {
		return Notice{
			TitleEN:   "Request Approved",
			TitleHI:   "अनुरोध स्वीकृत",
			MessageEN: "Your request has been approved. Your certificate is ready in the app.",
			MessageHI: "आपका अनुरोध स्वीकृत कर दिया गया है। आपका प्रमाणपत्र ऐप में तैयार है।",
		}
	}
	return Notice{
		TitleEN:   "Request Rejected",
		TitleHI:   "अनुरोध अस्वीकृत",
		MessageEN: "Your request was not approved. Please check the admin notes for details.",
		MessageHI: "आपका अनुरोध स्वीकृत नहीं हुआ। विवरण के लिए कृपया व्यवस्थापक की टिप्पणी देखें।",
	}
}

// SubmissionNotice is written when a citizen files a new issue.
func SubmissionNotice(issueTitle string) Notice {
	return Notice{
		TitleEN:   "Issue Submitted",
		TitleHI:   "समस्या दर्ज की गई",
		MessageEN: `Your issue "` + issueTitle + `" has been submitted successfully.`,
		MessageHI: `आपकी समस्या "` + issueTitle + `" सफलतापूर्वक दर्ज कर ली गई है।`,
	}
}
