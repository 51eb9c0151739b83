package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

func buildMessage(msg Message, now time.Time) ([]byte, error) {
	if strings.TrimSpace(msg.From) == "" {
		return nil, ErrNoSender
	}
	if len(msg.To) == 0 {
		return nil, ErrNoRecipients
	}

	headers := [][2]string{
		{"From", msg.From},
		{"To", strings.Join(msg.To, ", ")},
	}
	if msg.ReplyTo != "" {
		headers = append(headers, [2]string{"Reply-To", msg.ReplyTo})
	}
	headers = append(headers,
		[2]string{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		[2]string{"Date", now.Format(time.RFC1123Z)},
		[2]string{"Message-ID", messageID(msg.From)},
		[2]string{"MIME-Version", "1.0"},
		[2]string{"Content-Type", `text/html; charset="UTF-8"`},
		[2]string{"Content-Transfer-Encoding", "quoted-printable"},
	)

	var buf bytes.Buffer
	for _, h := range headers {
		if strings.ContainsAny(h[1], "\r\n") {
			return nil, fmt.Errorf("mailer: header %s contains a line break", h[0])
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTML)); err != nil {
		return nil, fmt.Errorf("mailer: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("mailer: encode body: %w", err)
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), nil
}

func messageID(from string) string {
	domain := "localhost"
	if addr, err := mail.ParseAddress(from); err == nil {
		if at := strings.LastIndex(addr.Address, "@"); at >= 0 && at < len(addr.Address)-1 {
			domain = addr.Address[at+1:]
		}
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
