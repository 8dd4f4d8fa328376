package utils

import (
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
)

// Mailer sends OTP mail over SMTP.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewMailer(host, port, user, pass, from string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// SendOTP emails a one-time passcode to the given address.
func (m *Mailer) SendOTP(to, otp string) error {
	mail := mailyak.New(m.host+":"+m.port, smtp.PlainAuth("", m.user, m.pass, m.host))

	mail.To(to)
	mail.From(m.from)
	mail.FromName("QuickTicket Support")
	mail.Subject("Your OTP for QuickTicket")
	mail.Plain().Set(fmt.Sprintf("Your OTP is: %s", otp))
	mail.HTML().Set(fmt.Sprintf("<p>Your OTP is: <b>%s</b>. It is valid for 5 minutes.</p>", otp))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}
