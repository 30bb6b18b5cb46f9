package services

import (
	"fmt"
	"html"

	"github.com/upgradeforless/UpgradeForLess/utils"
	"gopkg.in/gomail.v2"
)

// Notifier delivers operator alerts. Notify must not block the webhook path.
type Notifier interface {
	Notify(subject, body string)
}

// NopNotifier drops alerts; used when SMTP is not configured
type NopNotifier struct{}

// Notify does nothing
func (NopNotifier) Notify(subject, body string) {}

// MailConfig holds SMTP settings for alert mail
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier emails alerts to the configured operator address
type MailNotifier struct {
	from   string
	to     string
	sender mailSender
}

// NewMailNotifier creates a new MailNotifier
func NewMailNotifier(cfg MailConfig) *MailNotifier {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &MailNotifier{
		from:   from,
		to:     cfg.To,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Notify sends the alert in the background and logs delivery failures
func (n *MailNotifier) Notify(subject, body string) {
	m := n.buildMessage(subject, body)
	go func() {
		if err := n.sender.DialAndSend(m); err != nil {
			utils.LogError("Failed to send alert %q: %v", subject, err)
			return
		}
		utils.LogDebug("Alert %q sent to %s", subject, n.to)
	}()
}

func (n *MailNotifier) buildMessage(subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", utils.AppName, subject))
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", fmt.Sprintf("<pre>%s</pre>", html.EscapeString(body)))
	return m
}
