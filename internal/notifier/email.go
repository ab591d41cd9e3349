package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/calendar"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/telegram"
	"gopkg.in/gomail.v2"
)

// mailSender is satisfied by *gomail.Dialer
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSettings configures the email notifier
type SMTPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailNotifier sends one HTML email per recipient covering all updates
type EmailNotifier struct {
	sender mailSender
	from   string
	now    func() time.Time
}

// NewEmailNotifier creates an SMTP notifier
func NewEmailNotifier(s SMTPSettings) (*EmailNotifier, error) {
	if s.Host == "" || s.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	return &EmailNotifier{
		sender: gomail.NewDialer(s.Host, s.Port, s.User, s.Password),
		from:   s.From,
		now:    time.Now,
	}, nil
}

// Channel returns "email"
func (n *EmailNotifier) Channel() string {
	return ChannelEmail
}

// Notify sends a digest email to the recipient. Dated announcements are
// attached as an .ics calendar per course.
func (n *EmailNotifier) Notify(_ context.Context, to Recipient, updates []course.Update) error {
	if to.Address == "" {
		return fmt.Errorf("recipient %q has no email address", to.UserID)
	}

	total := course.CountAnnouncements(updates)
	if total == 0 {
		return nil
	}

	body, err := renderEmail(to, updates)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	if to.Name != "" {
		m.SetAddressHeader("To", to.Address, to.Name)
	} else {
		m.SetHeader("To", to.Address)
	}
	m.SetHeader("Subject", emailSubject(updates, total))
	m.SetBody("text/html", body)

	for _, u := range updates {
		if len(calendar.Dated(u.Announcements)) == 0 {
			continue
		}
		ics := calendar.GenerateICS(u.Course, u.Announcements, n.now())
		m.Attach(u.Course.Code+".ics", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.WriteString(w, ics)
			return err
		}), gomail.SetHeader(map[string][]string{"Content-Type": {"text/calendar; charset=utf-8"}}))
	}

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func emailSubject(updates []course.Update, total int) string {
	var only *course.Update
	for i := range updates {
		if len(updates[i].Announcements) == 0 {
			continue
		}
		if only != nil {
			return fmt.Sprintf("[MOOC] %s", telegram.FormatDigestSummary(updates))
		}
		only = &updates[i]
	}
	if total == 1 {
		return fmt.Sprintf("[MOOC] %s: %s", telegram.CourseLabel(only.Course), only.Announcements[0].Title)
	}
	return fmt.Sprintf("[MOOC] %s: %d new announcements", telegram.CourseLabel(only.Course), total)
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"label":    telegram.CourseLabel,
	"niceDate": course.FormatDateNice,
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.4;">
<p>Hello{{if .Name}} {{.Name}}{{end}},</p>
<p>New announcements were posted in courses you follow.</p>
{{range .Updates}}{{if .Announcements}}
<h2 style="margin-bottom: 0;">{{label .Course}}</h2>
<p style="margin-top: 0; color: #666;">{{.Course.Code}}{{with .Course.Link}} · <a href="{{.}}">open course</a>{{end}}</p>
{{range .Announcements}}
<h3 style="margin-bottom: 0;">{{.Title}}</h3>
{{if .HasDate}}<p style="margin-top: 0; color: #666;">{{niceDate .Date}}</p>{{end}}
{{if .Content}}<p style="white-space: pre-line;">{{.Content}}</p>{{end}}
{{end}}{{end}}{{end}}
<p style="color: #999; font-size: small;">You are receiving this because you subscribed with mooc-notices.</p>
</body>
</html>
`))

func renderEmail(to Recipient, updates []course.Update) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Name    string
		Updates []course.Update
	}{to.Name, updates})
	if err != nil {
		return "", fmt.Errorf("rendering email: %w", err)
	}
	return buf.String(), nil
}
