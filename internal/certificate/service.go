// Package certificate renders approval certificates and stores them as
// PDFs in object storage.
package certificate

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"nagarconnect/api/internal/storage"
	"nagarconnect/api/internal/store"
)

// Certificate describes one issued certificate.
type Certificate struct {
	Number        string
	RecipientName string
	RequestType   string
	Details       string
	IssuedAt      time.Time
}

var typeTitles = map[string]string{
	store.RequestDonationCertificate:  "Certificate of Donation",
	store.RequestVolunteerCertificate: "Certificate of Volunteer Service",
	store.RequestEventStall:           "Stall Permit",
	store.RequestEventOrganizer:       "Event Organizer Permit",
}

// Title returns the display heading for a request type.
func Title(requestType string) string {
	if title, ok := typeTitles[requestType]; ok {
		return title
	}
	return "Certificate of Appreciation"
}

type templateData struct {
	Title      string
	Number     string
	Recipient  string
	Details    string
	IssuedDate string
}

// RenderHTML builds the printable certificate page.
func RenderHTML(cert Certificate) (string, error) {
	t := template.Must(template.New("certificate").Parse(certificateTemplate))
	var buf bytes.Buffer
	err := t.Execute(&buf, templateData{
		Title:      Title(cert.RequestType),
		Number:     cert.Number,
		Recipient:  cert.RecipientName,
		Details:    cert.Details,
		IssuedDate: cert.IssuedAt.Format("2 January 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}
	return buf.String(), nil
}

// Service generates certificate PDFs and uploads them.
type Service struct {
	storage *storage.Service
	bucket  string
}

func NewService(objects *storage.Service, bucket string) *Service {
	return &Service{storage: objects, bucket: bucket}
}

// Generate renders the certificate, converts it to PDF and uploads it.
// Returns the public URL of the stored document.
func (s *Service) Generate(ctx context.Context, cert Certificate) (string, error) {
	html, err := RenderHTML(cert)
	if err != nil {
		return "", err
	}

	pdf, err := renderPDF(ctx, html)
	if err != nil {
		return "", err
	}

	objectName := cert.Number + ".pdf"
	url, err := s.storage.Upload(ctx, s.bucket, objectName, "application/pdf", bytes.NewReader(pdf), int64(len(pdf)))
	if err != nil {
		return "", fmt.Errorf("store certificate: %w", err)
	}
	return url, nil
}

const certificateTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page { size: A4 landscape; margin: 0; }
        body {
            font-family: Georgia, 'Times New Roman', serif;
            margin: 0;
            padding: 60px;
            background: #fffdf5;
            color: #1f2937;
        }
        .frame {
            border: 6px double #b45309;
            border-radius: 8px;
            padding: 50px 70px;
            text-align: center;
            height: calc(100vh - 220px);
        }
        .portal { font-size: 16px; letter-spacing: 4px; text-transform: uppercase; color: #b45309; }
        h1 { font-size: 42px; margin: 24px 0 8px; color: #1e40af; }
        .number { font-size: 14px; color: #6b7280; }
        .presented { font-size: 18px; margin-top: 40px; color: #374151; }
        .recipient { font-size: 34px; margin: 12px 0; border-bottom: 2px solid #d1d5db; display: inline-block; padding: 0 40px 6px; }
        .details { font-size: 17px; max-width: 640px; margin: 24px auto 0; line-height: 1.6; }
        .footer { margin-top: 60px; display: flex; justify-content: space-between; font-size: 14px; color: #4b5563; }
        .sign { border-top: 1px solid #9ca3af; padding-top: 6px; width: 220px; }
    </style>
</head>
<body>
    <div class="frame">
        <div class="portal">NagarConnect · Citizen Issue Portal</div>
        <h1>{{.Title}}</h1>
        <div class="number">Certificate No. {{.Number}}</div>
        <div class="presented">This certificate is proudly presented to</div>
        <div class="recipient">{{.Recipient}}</div>
        <div class="details">{{.Details}}</div>
        <div class="footer">
            <div class="sign">Issued on {{.IssuedDate}}</div>
            <div class="sign">Municipal Administrator</div>
        </div>
    </div>
</body>
</html>`
