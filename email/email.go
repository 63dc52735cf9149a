package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"strconv"
	"text/template"
)

// Mailer sends a single plain text message.
type Mailer interface {
	Send(to, subject, body string) error
}

type Email struct {
	from string
	addr string
	auth smtp.Auth
}

func New(from, password, host string, port int) *Email {
	return &Email{
		from: from,
		addr: host + ":" + strconv.Itoa(port),
		auth: smtp.PlainAuth("", from, password, host),
	}
}

var message = template.Must(template.New("message").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: {{.Subject}}\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" +
		"{{.Body}}\r\n"))

func (e *Email) Send(to, subject, body string) error {
	var buf bytes.Buffer
	data := struct{ From, To, Subject, Body string }{e.from, to, subject, body}
	if err := message.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering message: %w", err)
	}

	if err := smtp.SendMail(e.addr, e.auth, e.from, []string{to}, buf.Bytes()); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// Reservation renders the confirmation sent when a table is booked.
func Reservation(name string, guests int, when string, ref string) (subject, body string) {
	subject = "Your Foodie reservation"
	body = fmt.Sprintf(
		"Hi %s,\n\nwe received your reservation for %d guest(s) on %s.\n"+
			"Reference: %s\n\nWe will confirm it shortly.\n\nFoodie",
		name, guests, when, ref,
	)
	return subject, body
}
