package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"storm-sync/internal/models"
	"storm-sync/shared/config"
)

const rainAlertTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Rain Alert</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #455A64; color: white; padding: 20px; border-radius: 8px; text-align: center; }
        .metric { display: inline-block; margin: 10px 15px 10px 0; }
        .metric-label { font-weight: bold; color: #666; }
        .metric-value { font-size: 18px; color: #1E88E5; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; border-top: 1px solid #ddd; padding-top: 15px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🌧️ It's raining at {{.LocationName}}</h1>
        <p>{{.Date.Format "Monday, January 2, 2006 at 3:04 PM MST"}}</p>
    </div>

    <div class="metric">
        <div class="metric-label">Temperature</div>
        <div class="metric-value">{{printf "%.1f°F" .Reading.TemperatureF}}</div>
    </div>
    <div class="metric">
        <div class="metric-label">Pressure</div>
        <div class="metric-value">{{printf "%.2f mb" .Reading.PressureMb}}</div>
    </div>
    {{if .Prediction}}<p><strong>Forecast:</strong> {{.Prediction}}</p>{{end}}

    <div class="footer">
        <p>Reading source: {{.Reading.Source}}</p>
    </div>
</body>
</html>
`

type Sender struct {
	config *config.EmailConfig
	tmpl   *template.Template
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		tmpl:   template.Must(template.New("rain-alert").Parse(rainAlertTemplate)),
		send:   smtp.SendMail,
	}
}

// SendRainAlert mails a notification that rain has started
func (s *Sender) SendRainAlert(alert *models.RainAlert) error {
	if alert == nil {
		return fmt.Errorf("alert cannot be nil")
	}

	subject := fmt.Sprintf("🌧️ Rain started in %s", alert.LocationName)

	body, err := s.generateEmailBody(alert)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	return s.sendViaSMTP(subject, htmlBody)
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return s.send(addr, auth, s.config.FromEmail, to, msg)
}

func (s *Sender) generateEmailBody(alert *models.RainAlert) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, alert); err != nil {
		return "", err
	}
	return buf.String(), nil
}
