package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
)

// Mailer sends the audit copy of the assembled report. The per-employee
// notifications never go through here; those ride the job queue.
type Mailer interface {
	SendAuditCopy(ctx context.Context, attachmentName string, artifact []byte) error
}

// SESMailer sends the audit email through AWS SES v2 as a raw multipart
// message, because the Simple content type cannot carry attachments.
type SESMailer struct {
	client *sesv2.Client
	from   string
	to     string
}

// NewSESMailer creates a mailer that sends the audit copy from `from` to the
// administrative address `to`.
func NewSESMailer(cfg aws.Config, from, to string) *SESMailer {
	return &SESMailer{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
		to:     to,
	}
}

const auditNote = "Attached is the filtered CSV containing only users with active subscriptions.\r\n\r\nStay healthy and keep moving!"

// SendAuditCopy delivers the assembled CSV to the admin address. Callers
// treat a failure here as fatal to the whole run: the audit copy is the
// source of truth for what was dispatched.
func (m *SESMailer) SendAuditCopy(ctx context.Context, attachmentName string, artifact []byte) error {
	subject := fmt.Sprintf("Filtered Active Users CSV: %s", attachmentName)
	raw := buildRawMessage(m.from, m.to, subject, auditNote, attachmentName, artifact)

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return fmt.Errorf("send audit copy to %s: %w", logger.RedactEmail(m.to), err)
	}

	logger.Info("audit copy sent", "to", m.to, "attachment", attachmentName, "bytes", len(artifact))
	return nil
}

// buildRawMessage assembles a multipart/mixed MIME message with a plain-text
// note and one CSV attachment.
func buildRawMessage(from, to, subject, note, attachmentName string, attachment []byte) []byte {
	const boundary = "NextPart"

	var b strings.Builder
	write := func(lines ...string) {
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString("\r\n")
		}
	}

	write(
		"From: "+from,
		"To: "+to,
		"Subject: "+subject,
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="`+boundary+`"`,
		"",
		"--"+boundary,
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"",
		note,
		"",
		"--"+boundary,
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="`+attachmentName+`"`,
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString(attachment),
		"",
		"--"+boundary+"--",
	)

	return []byte(b.String())
}
