package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a sender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// SendNewLeadNotification mails the tenant about a freshly ingested lead,
// including the one-click rating links.
func (s *SMTPSender) SendNewLeadNotification(ctx context.Context, toEmail string, data NewLeadData) error {
	content, err := renderEmailTemplate("new_lead.html", newLeadEmailData{
		baseEmailData: baseEmailData{
			Title:   "New lead received",
			Heading: "New lead: " + data.LeadName,
		},
		NewLeadData: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectNewLead, content)
}

// SendAssignmentNotification mails an agent about a lead assigned to them.
func (s *SMTPSender) SendAssignmentNotification(ctx context.Context, toEmail string, data AssignmentData) error {
	content, err := renderEmailTemplate("assignment.html", assignmentEmailData{
		baseEmailData: baseEmailData{
			Title:   "Lead assigned to you",
			Heading: "Lead assigned: " + data.LeadName,
		},
		AssignmentData: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAssignment, content)
}

const (
	subjectNewLead    = "New lead received"
	subjectAssignment = "A lead was assigned to you"
)
