// Package notify sends purchase and status notifications. Everything here
// is best-effort: callers run it from goroutines and log failures; a
// notification must never block or fail the request that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"time"

	consulapi "github.com/hashicorp/consul/api"
)

// smsGatewayService is the consul service name of the external SMS sender.
const smsGatewayService = "sms-gateway"

type Conf struct {
	client *consulapi.Client

	smtpHost string
	smtpPort string
	username string
	password string
	from     string

	httpClient *http.Client
}

// NewConf builds a notifier from SMTP_* environment variables. The consul
// client may be nil, in which case SMS sends report failure and callers
// fall back to email.
func NewConf(client *consulapi.Client) *Conf {
	return &Conf{
		client:     client,
		smtpHost:   os.Getenv("SMTP_HOST"),
		smtpPort:   os.Getenv("SMTP_PORT"),
		username:   os.Getenv("SMTP_USERNAME"),
		password:   os.Getenv("SMTP_PASSWORD"),
		from:       os.Getenv("SMTP_FROM"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// PurchaseMessage is the confirmation sent after a successful placement.
func PurchaseMessage(orderNumber string) string {
	return fmt.Sprintf("Thank you for your order! Your order %s has been placed and is being processed.", orderNumber)
}

// statusMessages are the canned notifications keyed by the new status.
var statusMessages = map[string]string{
	"confirmed": "Your order %s has been confirmed.",
	"shipped":   "Good news! Your order %s has been shipped.",
	"delivered": "Your order %s has been delivered. Enjoy!",
	"cancelled": "Your order %s has been cancelled.",
	"pending":   "Your order %s is pending.",
}

// StatusMessage returns the canned message for a status change.
func StatusMessage(orderNumber, status string) string {
	format, ok := statusMessages[status]
	if !ok {
		format = "Your order %s has been updated."
	}
	return fmt.Sprintf(format, orderNumber)
}

// Send delivers the message over SMS when a phone number is known,
// otherwise over email.
func (n *Conf) Send(ctx context.Context, phone, email, subject, message string) error {
	if phone != "" {
		return n.sendSMS(ctx, phone, message)
	}
	if email != "" {
		return n.sendEmail(email, subject, message)
	}
	return fmt.Errorf("no phone or email to notify")
}

func (n *Conf) sendSMS(ctx context.Context, phone, message string) error {
	if n.client == nil {
		return fmt.Errorf("sms gateway not configured")
	}
	address, port, err := smsGatewayAddress(n.client)
	if err != nil {
		return fmt.Errorf("sms gateway unavailable: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"to": phone, "message": message})
	if err != nil {
		return fmt.Errorf("marshaling sms payload: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/send", address, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned %s", resp.Status)
	}
	return nil
}

func smsGatewayAddress(client *consulapi.Client) (string, int, error) {
	services, _, err := client.Health().Service(smsGatewayService, "", true, nil)
	if err != nil {
		return "", 0, err
	}
	if len(services) == 0 {
		return "", 0, fmt.Errorf("no healthy instances of %s", smsGatewayService)
	}
	svc := services[0].Service
	address := svc.Address
	if address == "" {
		address = services[0].Node.Address
	}
	return address, svc.Port, nil
}

func (n *Conf) sendEmail(to, subject, body string) error {
	if n.smtpHost == "" {
		return fmt.Errorf("smtp not configured")
	}
	message := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", n.username, n.password, n.smtpHost)
	if err := smtp.SendMail(n.smtpHost+":"+n.smtpPort, auth, n.from, []string{to}, message); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
