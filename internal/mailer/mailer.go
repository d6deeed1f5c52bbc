// Package mailer delivers rendered reports to their recipient over SMTP.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"time"

	"mserapports/internal/utils"
	"mserapports/pkg/types"
)

// Sender delivers a rendered report to its configured recipient.
type Sender interface {
	SendReport(ctx context.Context, report *types.Report, pdfData []byte) error
}

// SMTPSender sends via plain SMTP, with optional PLAIN auth. When disabled it
// silently does nothing, which keeps local development mail-free.
type SMTPSender struct {
	enabled  bool
	from     string
	host     string
	port     uint
	user     string
	password string
}

func NewSMTPSender(config *types.Config) *SMTPSender {
	return &SMTPSender{
		enabled:  config.MailEnabled,
		from:     config.MailFrom,
		host:     config.SMTPHost,
		port:     config.SMTPPort,
		user:     config.SMTPUser,
		password: config.SMTPPassword,
	}
}

func (s *SMTPSender) SendReport(ctx context.Context, report *types.Report, pdfData []byte) error {
	if !s.enabled {
		return nil
	}

	to := utils.PtrString(report.EmailDestinataire)
	if to == "" {
		return fmt.Errorf("report %d has no recipient", report.ID)
	}

	msg := BuildMessage(s.from, to, report, pdfData)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send report %d to %s: %w", report.ID, to, err)
	}

	return nil
}

// BuildMessage assembles the multipart MIME message: a short plain-text body
// and the report PDF as attachment.
func BuildMessage(from, to string, report *types.Report, pdfData []byte) []byte {
	boundary := fmt.Sprintf("mse-%d-%d", report.ID, time.Now().UnixNano())
	subject := fmt.Sprintf("Rapport d'intervention %s", reportLabel(report))
	filename := fmt.Sprintf("rapport_%d.pdf", report.ID)

	body := fmt.Sprintf(
		"Bonjour,\r\n\r\nVeuillez trouver ci-joint le rapport d'intervention %s du %s.\r\n\r\nAdresse : %s\r\n\r\nCordialement,\r\nMSE - Maintenance des Systèmes Énergétiques\r\n",
		reportLabel(report), report.ReportDate.Format("02/01/2006"), report.Address)

	var buf bytes.Buffer
	write := func(format string, args ...any) {
		fmt.Fprintf(&buf, format, args...)
	}

	write("From: %s\r\n", from)
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	write("\r\n")

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 8bit\r\n")
	write("\r\n")
	write("%s\r\n", body)

	write("--%s\r\n", boundary)
	write("Content-Type: application/pdf; name=%q\r\n", filename)
	write("Content-Disposition: attachment; filename=%q\r\n", filename)
	write("Content-Transfer-Encoding: base64\r\n")
	write("\r\n")

	encoded := base64.StdEncoding.EncodeToString(pdfData)
	for len(encoded) > 76 {
		write("%s\r\n", encoded[:76])
		encoded = encoded[76:]
	}
	write("%s\r\n", encoded)

	write("--%s--\r\n", boundary)

	return buf.Bytes()
}

func reportLabel(report *types.Report) string {
	if num := utils.PtrString(report.ReportNum); num != "" {
		return num
	}
	return fmt.Sprintf("N°%d", report.ID)
}
