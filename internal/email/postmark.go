package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendOrderUpdate tells a buyer that an admin settled their order.
func (c *Client) SendOrderUpdate(ctx context.Context, toEmail, orderID, listingTitle, status string) error {
	var subject, line string
	switch status {
	case "completed":
		subject = fmt.Sprintf("Your slot for %s is confirmed", listingTitle)
		line = "Your payment was verified and your slot is ready. Check your orders for access details."
	case "failed":
		subject = fmt.Sprintf("Payment for %s was rejected", listingTitle)
		line = "We could not verify your payment, so the slot was released. Contact support if you believe this is a mistake."
	default:
		subject = fmt.Sprintf("Update on your order for %s", listingTitle)
		line = fmt.Sprintf("Your order is now %s.", status)
	}

	link := fmt.Sprintf("%s/orders/%s", c.baseURL, orderID)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		TextBody: fmt.Sprintf("%s\n\n%s", line, link),
		HtmlBody: fmt.Sprintf(`<p>%s</p><p><a href="%s">View order</a></p>`, html.EscapeString(line), html.EscapeString(link)),
	})
}

// SendListingReviewed tells a seller the outcome of a listing review.
func (c *Client) SendListingReviewed(ctx context.Context, toEmail, listingTitle, status, feedback string) error {
	subject := fmt.Sprintf("Your listing %s was approved", listingTitle)
	line := "It is now visible to buyers."
	if status != "active" {
		subject = fmt.Sprintf("Your listing %s was not approved", listingTitle)
		line = "An admin rejected the listing."
		if feedback != "" {
			line += " Feedback: " + feedback
		}
	}

	link := fmt.Sprintf("%s/seller/listings", c.baseURL)
	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		TextBody: fmt.Sprintf("%s\n\n%s", line, link),
		HtmlBody: fmt.Sprintf(`<p>%s</p><p><a href="%s">Your listings</a></p>`, html.EscapeString(line), html.EscapeString(link)),
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}
	return nil
}
