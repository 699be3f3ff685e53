// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

type NotificationService struct {
	contract chain.Reader
	config   *config.Config
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(contract chain.Reader, config *config.Config) *NotificationService {
	return &NotificationService{
		contract: contract,
		config:   config,
		send:     smtp.SendMail,
	}
}

func (s *NotificationService) Enabled() bool {
	return s.config.Email.SMTPHost != ""
}

// SendShipmentDispatched tells the next owner a shipment and its invoice are on the way.
func (s *NotificationService) SendShipmentDispatched(ctx context.Context, product *chain.Product) error {
	recipient, err := s.contract.GetUser(ctx, product.NextOwner)
	if err != nil {
		return fmt.Errorf("failed to look up next owner: %w", err)
	}

	sender, err := s.contract.GetUser(ctx, product.Owner)
	if err != nil {
		return fmt.Errorf("failed to look up sender: %w", err)
	}

	data := map[string]interface{}{
		"CompanyName": recipient.CompanyName,
		"SenderName":  sender.CompanyName,
		"ProductName": product.Name,
		"ProductID":   product.ID,
		"AmountDue":   utils.FormatEther(product.AmountDue),
		"InvoiceURL":  fmt.Sprintf("%s/payAmountDue", s.config.Frontend.BaseURL),
	}

	return s.deliver(recipient.Email, "shipment_dispatched", data)
}

// SendInvoicePaid tells the payee their invoice was settled.
func (s *NotificationService) SendInvoicePaid(ctx context.Context, product *chain.Product, payment chain.Payment) error {
	if payment.Payee == (common.Address{}) {
		return nil
	}
	recipient, err := s.contract.GetUser(ctx, payment.Payee)
	if err != nil {
		return fmt.Errorf("failed to look up payee: %w", err)
	}

	data := map[string]interface{}{
		"CompanyName": recipient.CompanyName,
		"ProductName": product.Name,
		"ProductID":   product.ID,
		"Amount":      utils.FormatEther(payment.Amount),
		"Payer":       payment.Payer.Hex(),
		"TxHash":      payment.TxHash.Hex(),
	}

	return s.deliver(recipient.Email, "invoice_paid", data)
}

func (s *NotificationService) deliver(to, templateType string, data map[string]interface{}) error {
	tmpl := s.getEmailTemplate(templateType)

	subject, err := s.renderTemplate(tmpl.Subject, data)
	if err != nil {
		return fmt.Errorf("failed to render email subject: %w", err)
	}
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(to, subject, body)
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if !s.Enabled() || to == "" {
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Debug("Email skipped")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return s.send(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"shipment_dispatched": {
			Subject: "Shipment on its way - {{.ProductName}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.CompanyName}},</h2>
	<p>{{.SenderName}} has dispatched product #{{.ProductID}} "{{.ProductName}}" to you.</p>
	<p>Amount due: {{.AmountDue}} ETH</p>
	<a href="{{.InvoiceURL}}">View pending invoices</a>
	<p>FoodSecure</p>
</body>
</html>`,
		},
		"invoice_paid": {
			Subject: "Invoice paid - {{.ProductName}}",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.CompanyName}},</h2>
	<p>The invoice for product #{{.ProductID}} "{{.ProductName}}" has been paid.</p>
	<p>Amount: {{.Amount}} ETH from {{.Payer}}</p>
	<p>Transaction: {{.TxHash}}</p>
	<p>FoodSecure</p>
</body>
</html>`,
		},
	}

	if t, exists := templates[templateType]; exists {
		return t
	}

	return EmailTemplate{
		Subject: "FoodSecure notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
