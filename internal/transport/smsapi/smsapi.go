// Package smsapi sends text messages through a Twilio-compatible REST API.
// It implements the primary (plain SMS) channel and, via NativeChat, the
// provider's chat-app addressing mode used as the last secondary fallback.
package smsapi

import (
	"context"
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
const footer = "\n\n[Sent via Guardian]"

// Client calls the provider's message-create endpoint.
type Client struct {
	apiBase    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// New creates a Client. apiBase is the provider root, e.g.
// https://api.twilio.com.
func New(apiBase, accountSID, authToken, from string) *Client {
	return &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Channel implements dispatch.Transport.
func (c *Client) Channel() incident.Channel { return incident.ChannelSMS }

// Send delivers one SMS. Provider errors are mapped into the returned
// error; the caller records them per-result.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	return c.send(ctx, c.from, phone, text)
}

func (c *Client) send(ctx context.Context, from, to, text string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", text+footer)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.apiBase, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("smsapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("smsapi: post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("smsapi: provider returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// NativeChat returns the provider's chat-app mode as its own transport:
// same endpoint, chat-prefixed addressing. Used only when no dedicated
// gateway is configured.
func (c *Client) NativeChat() *NativeChatClient {
	return &NativeChatClient{sms: c}
}

// NativeChatClient sends through the SMS provider's chat-app bridge.
type NativeChatClient struct {
	sms *Client
}

// Channel implements dispatch.Transport.
func (n *NativeChatClient) Channel() incident.Channel { return incident.ChannelChatNative }

// Send delivers one chat message via the provider bridge.
func (n *NativeChatClient) Send(ctx context.Context, phone, text string) error {
	from := n.sms.from
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return n.sms.send(ctx, from, "whatsapp:"+phone, text)
}
