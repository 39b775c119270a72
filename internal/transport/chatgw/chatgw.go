// Package chatgw sends chat-app messages through automation gateways: a
// self-hosted instance (no per-message cost, preferred) and a paid hosted
// gateway. Both map their wire errors into plain failure reasons.
package chatgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linnemanlabs/guardian/internal/incident"
)

const httpTimeout = 10 * time.Second

// footer identifies the sending system to the recipient. Appended here,
// not in the alert body, so each channel can carry its own signature.
const footer = "\n\n[Sent via Guardian Automated Gateway]"

// chatID converts an E.164 number into the gateway addressing format.
func chatID(phone string) string {
	return strings.TrimPrefix(phone, "+") + "@c.us"
}

// SelfHosted talks to a self-hosted gateway instance (WAHA-style JSON API).
type SelfHosted struct {
	baseURL string
	apiKey  string
	session string
	client  *http.Client
}

// NewSelfHosted creates a self-hosted gateway client.
func NewSelfHosted(baseURL, apiKey, session string) *SelfHosted {
	return &SelfHosted{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		session: session,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Channel implements dispatch.Transport.
func (g *SelfHosted) Channel() incident.Channel { return incident.ChannelChatSelfHosted }

// Send delivers one chat message.
func (g *SelfHosted) Send(ctx context.Context, phone, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chatId":  chatID(phone),
		"text":    text + footer,
		"session": g.session,
	})
	if err != nil {
		return fmt.Errorf("chatgw: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/sendText", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("chatgw: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Some gateway builds use X-Api-Key, others expect a bearer token.
	req.Header.Set("X-Api-Key", g.apiKey)
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("chatgw: post sendText: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chatgw: gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Paid talks to a hosted pay-per-message gateway (UltraMsg-style form API).
type Paid struct {
	baseURL  string
	instance string
	token    string
	client   *http.Client
}

// NewPaid creates a paid gateway client. baseURL is the provider root,
// e.g. https://api.ultramsg.com.
func NewPaid(baseURL, instance, token string) *Paid {
	return &Paid{
		baseURL:  strings.TrimRight(baseURL, "/"),
		instance: instance,
		token:    token,
		client:   &http.Client{Timeout: httpTimeout},
	}
}

// Channel implements dispatch.Transport.
func (g *Paid) Channel() incident.Channel { return incident.ChannelChatPaid }

// Send delivers one chat message.
func (g *Paid) Send(ctx context.Context, phone, text string) error {
	form := url.Values{}
	form.Set("token", g.token)
	form.Set("to", strings.TrimPrefix(phone, "+"))
	form.Set("body", text+footer)

	endpoint := fmt.Sprintf("%s/%s/messages/chat", g.baseURL, g.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("chatgw: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("chatgw: post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chatgw: gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
