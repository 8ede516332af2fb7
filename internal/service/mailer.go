package service

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPSender sends login codes over SMTP.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) SendOTP(to, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your Progenics LIMS login code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your login code is %s.\n\nIt expires in 5 minutes and can be used once.", code))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
