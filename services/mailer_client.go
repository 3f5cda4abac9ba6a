package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"netwin-backend/utils"
)

// Mailer delivers one-time codes. Delivery mechanics live behind the relay.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}

// MailRelayClient posts messages to an HTTP mail relay.
type MailRelayClient struct {
	BaseURL string
	Token   string
	From    string
	Client  *http.Client
}

func NewMailRelayClient(baseURL, token, from string) *MailRelayClient {
	return &MailRelayClient{
		BaseURL: baseURL,
		Token:   token,
		From:    from,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type relayMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// SendOTP calls /send on the relay
func (c *MailRelayClient) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	url := fmt.Sprintf("%s/send", c.BaseURL)

	jsonData, err := json.Marshal(relayMessage{
		From:    c.From,
		To:      email,
		Subject: "Your Netwin verification code",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes())),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		utils.Log.Warnw("[MAILER] relay rejected message", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("mail relay returned %d", resp.StatusCode)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them (local dev).
type LogMailer struct{}

func (LogMailer) SendOTP(_ context.Context, email, code string, ttl time.Duration) error {
	utils.Log.Infow("[MAILER] 📧 otp (log mailer)", "email", email, "code", code, "ttl", ttl)
	return nil
}
