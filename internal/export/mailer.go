package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/osteele/liquid"

	"github.com/ignite/newsletter-metrics/internal/config"
)

// reportBodyTemplate is the plain-text body of the report email.
const reportBodyTemplate = `Hello,

Please find attached the newsletter performance report for {{ start_date }} to {{ end_date }}.

This report includes data from both TinyEmail and Beehiiv platforms, formatted for direct import into Google Sheets.

Best regards,
Newsletter Metrics System
`

// sesAPI is the slice of the SES client the mailer needs.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer emails exported CSV reports through AWS SES.
type Mailer struct {
	client sesAPI
	cfg    config.ReportConfig
	engine *liquid.Engine
}

// NewMailer creates an SES-backed mailer using the default credential chain.
func NewMailer(ctx context.Context, cfg config.ReportConfig) (*Mailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Mailer{
		client: sesv2.NewFromConfig(awsCfg),
		cfg:    cfg,
		engine: liquid.NewEngine(),
	}, nil
}

// SendReport emails the CSV at csvPath to the configured recipients as an
// attachment, with a rendered plain-text body and a subject carrying the
// report's date range.
func (m *Mailer) SendReport(ctx context.Context, csvPath string, start, end time.Time) error {
	attachment, err := os.ReadFile(csvPath)
	if err != nil {
		return fmt.Errorf("reading report file: %w", err)
	}

	startStr := start.Format("2006-01-02")
	endStr := end.Format("2006-01-02")

	body, err := m.engine.ParseAndRenderString(reportBodyTemplate, liquid.Bindings{
		"start_date": startStr,
		"end_date":   endStr,
	})
	if err != nil {
		return fmt.Errorf("rendering report body: %w", err)
	}

	subject := fmt.Sprintf("Newsletter Performance Report: %s to %s", startStr, endStr)
	raw, err := buildRawMessage(m.cfg.FromEmail, m.cfg.Recipients, subject, body,
		filepath.Base(csvPath), attachment)
	if err != nil {
		return fmt.Errorf("building report message: %w", err)
	}

	_, err = m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.cfg.FromEmail),
		Destination:      &types.Destination{ToAddresses: m.cfg.Recipients},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return fmt.Errorf("sending report email: %w", err)
	}

	log.Printf("export: emailed %s to %s", filepath.Base(csvPath), strings.Join(m.cfg.Recipients, ", "))
	return nil
}

// buildRawMessage assembles a multipart/mixed MIME message with a plain-text
// body part and a base64-encoded CSV attachment.
func buildRawMessage(from string, to []string, subject, body, filename string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="UTF-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, err
	}

	filePart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"application/octet-stream"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filename)},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(filePart, attachment); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76-character lines per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
