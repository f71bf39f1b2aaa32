// Package email renders and delivers the status-update emails citizens
// receive when staff move their issue forward.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"nagarconnect/api/internal/i18n"
)

// Sender delivers one HTML email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return sent.Id, nil
}

// StatusUpdate describes the email for one status transition.
type StatusUpdate struct {
	IssueTitle string
	NewStatus  string
	Language   i18n.Language
}

type templateData struct {
	IssueTitle  string
	StatusLabel string
	StatusColor string
	Resolved    bool
}

// RenderStatusUpdate builds the localized subject and HTML body. The
// resolved transition gets an extra congratulatory block.
func RenderStatusUpdate(update StatusUpdate) (subject, html string, err error) {
	data := templateData{
		IssueTitle:  update.IssueTitle,
		StatusLabel: i18n.StatusLabel(update.NewStatus, update.Language),
		StatusColor: i18n.StatusColor(update.NewStatus),
		Resolved:    update.NewStatus == "resolved",
	}

	if update.Language == i18n.LangHI {
		subject = fmt.Sprintf("स्थिति अपडेट: आपकी समस्या %q", update.IssueTitle)
		html, err = renderTemplate(statusUpdateTemplateHI, data)
	} else {
		subject = fmt.Sprintf("Status Update: Your issue %q", update.IssueTitle)
		html, err = renderTemplate(statusUpdateTemplateEN, data)
	}
	if err != nil {
		return "", "", fmt.Errorf("render status update: %w", err)
	}
	return subject, html, nil
}

func renderTemplate(tmpl string, data templateData) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const statusUpdateTemplateEN = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: linear-gradient(135deg, #1e40af, #10b981); padding: 30px; border-radius: 10px 10px 0 0; text-align: center;">
        <h1 style="color: white; margin: 0; font-size: 24px;">NagarConnect</h1>
        <p style="color: rgba(255,255,255,0.9); margin: 5px 0 0;">Citizen Issue Portal</p>
    </div>

    <div style="background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px;">
        <h2 style="color: #1f2937; margin-top: 0;">Status Update</h2>

        <div style="background: white; border-radius: 8px; padding: 20px; margin: 20px 0; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
            <p style="margin: 0 0 10px;"><strong>Issue:</strong> {{.IssueTitle}}</p>
            <p style="margin: 0;">
                <strong>New Status:</strong>
                <span style="background: {{.StatusColor}}; color: white; padding: 4px 12px; border-radius: 20px; font-size: 14px;">{{.StatusLabel}}</span>
            </p>
        </div>

        {{if .Resolved}}
        <div style="background: #ecfdf5; border-left: 4px solid #10b981; padding: 15px; margin: 20px 0; border-radius: 4px;">
            <p style="margin: 0; color: #065f46;">🎉 Your issue has been resolved! Please open the app to rate your experience.</p>
        </div>
        {{end}}

        <p style="color: #6b7280; font-size: 14px; margin-top: 20px;">
            This is an automated notification. Please check the app for more details.
        </p>
    </div>

    <div style="text-align: center; padding: 20px; color: #9ca3af; font-size: 12px;">
        <p>© 2024 NagarConnect - Citizen Issue Portal</p>
    </div>
</body>
</html>`

const statusUpdateTemplateHI = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: linear-gradient(135deg, #1e40af, #10b981); padding: 30px; border-radius: 10px 10px 0 0; text-align: center;">
        <h1 style="color: white; margin: 0; font-size: 24px;">नगर कनेक्ट</h1>
        <p style="color: rgba(255,255,255,0.9); margin: 5px 0 0;">नागरिक समस्या पोर्टल</p>
    </div>

    <div style="background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px;">
        <h2 style="color: #1f2937; margin-top: 0;">स्थिति अपडेट</h2>

        <div style="background: white; border-radius: 8px; padding: 20px; margin: 20px 0; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
            <p style="margin: 0 0 10px;"><strong>समस्या:</strong> {{.IssueTitle}}</p>
            <p style="margin: 0;">
                <strong>नई स्थिति:</strong>
                <span style="background: {{.StatusColor}}; color: white; padding: 4px 12px; border-radius: 20px; font-size: 14px;">{{.StatusLabel}}</span>
            </p>
        </div>

        {{if .Resolved}}
        <div style="background: #ecfdf5; border-left: 4px solid #10b981; padding: 15px; margin: 20px 0; border-radius: 4px;">
            <p style="margin: 0; color: #065f46;">🎉 आपकी समस्या का समाधान हो गया है! कृपया अपने अनुभव का मूल्यांकन करने के लिए ऐप खोलें।</p>
        </div>
        {{end}}

        <p style="color: #6b7280; font-size: 14px; margin-top: 20px;">
            यह एक स्वचालित सूचना है। कृपया अधिक जानकारी के लिए ऐप देखें।
        </p>
    </div>

    <div style="text-align: center; padding: 20px; color: #9ca3af; font-size: 12px;">
        <p>© 2024 नगर कनेक्ट - नागरिक समस्या पोर्टल</p>
    </div>
</body>
</html>`
