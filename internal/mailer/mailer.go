// Package mailer sends a finished export by email, with the workbook
// attached. It is only exercised when the --email flag is set.
package mailer

import (
	"fmt"
	"os/user"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/nocturnalbeast/cutie/internal/config"
)

// BuildMessage assembles the export notification with the workbook at
// attachmentPath attached. The from-address is the local account name at
// the configured sender domain.
func BuildMessage(settings config.EmailSettings, attachmentPath string, now time.Time) (*gomail.Message, error) {
	if settings.SenderDomain == "" {
		return nil, fmt.Errorf("%w: email.sender_domain is not set", config.ErrConfig)
	}
	if len(settings.ToList) == 0 {
		return nil, fmt.Errorf("%w: email.to_list is empty", config.ErrConfig)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s@%s", localUsername(), settings.SenderDomain))
	m.SetHeader("To", settings.ToList...)
	if len(settings.CcList) > 0 {
		m.SetHeader("Cc", settings.CcList...)
	}
	m.SetHeader("Subject", fmt.Sprintf("ALM test plan export - %s", now.Format("2006-01-02 15:04")))
	m.SetBody("text/plain",
		"Hello,\n\nplease find the requested test plan export attached.\n\n"+
			"This message was generated by cutie.\n")
	m.Attach(attachmentPath)
	return m, nil
}

// Send builds the message and delivers it through the configured SMTP host.
func Send(settings config.EmailSettings, attachmentPath string, now time.Time) error {
	m, err := BuildMessage(settings, attachmentPath, now)
	if err != nil {
		return err
	}
	d := &gomail.Dialer{Host: settings.SMTPHost, Port: settings.SMTPPort}
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("sending export email via %s:%d: %w",
			settings.SMTPHost, settings.SMTPPort, err)
	}
	return nil
}

func localUsername() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "cutie"
	}
	return u.Username
}
