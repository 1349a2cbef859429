package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultMTalkzBaseURL = "https://api.mtalkz.com/v2"
	defaultSenderID      = "SAMDDR"
	otpTemplateName      = "otp_verification"
)

// MTalkzClient sends OTPs through the mTalkz gateway. WhatsApp template
// delivery is tried first, then plain SMS as a fallback.
type MTalkzClient struct {
	APIKey   string
	SenderID string // SMS sender id, defaults to SAMDDR
	BaseURL  string // Overridable for tests
	HTTP     *http.Client
}

// NewMTalkzClient creates a client with sane defaults
func NewMTalkzClient(apiKey string) *MTalkzClient {
	return &MTalkzClient{
		APIKey:   apiKey,
		SenderID: defaultSenderID,
		BaseURL:  defaultMTalkzBaseURL,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendOTP delivers a one-time code to a 10 digit Indian mobile number
func (c *MTalkzClient) SendOTP(ctx context.Context, mobile, code string) error {
	if err := c.sendWhatsApp(ctx, mobile, code); err == nil {
		return nil
	} else {
		log.Printf("WhatsApp delivery to %s failed, falling back to SMS: %v", mobile, err)
	}
	return c.sendSMS(ctx, mobile, code)
}

type whatsappRequest struct {
	APIKey         string   `json:"apikey"`
	Channel        string   `json:"channel"`
	To             string   `json:"to"`
	Type           string   `json:"type"`
	TemplateName   string   `json:"template_name"`
	TemplateParams []string `json:"template_params"`
	Message        string   `json:"message"`
}

type mtalkzResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *MTalkzClient) sendWhatsApp(ctx context.Context, mobile, code string) error {
	payload := whatsappRequest{
		APIKey:         c.APIKey,
		Channel:        "whatsapp",
		To:             "91" + mobile,
		Type:           "template",
		TemplateName:   otpTemplateName,
		TemplateParams: []string{code},
		Message:        otpMessage(code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/whatsapp/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.checkResponse(req)
}

func (c *MTalkzClient) sendSMS(ctx context.Context, mobile, code string) error {
	form := url.Values{}
	form.Set("apikey", c.APIKey)
	form.Set("senderid", c.senderID())
	form.Set("number", "91"+mobile)
	form.Set("message", otpMessage(code))
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/sendmessage", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.checkResponse(req)
}

// checkResponse treats a send as delivered only on HTTP 200 with a
// "success" status in the body.
func (c *MTalkzClient) checkResponse(req *http.Request) error {
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mtalkz request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("failed to read mtalkz response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mtalkz returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed mtalkzResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("unexpected mtalkz response: %s", strings.TrimSpace(string(raw)))
	}
	if !strings.EqualFold(parsed.Status, "success") {
		return fmt.Errorf("mtalkz rejected message: %s %s", parsed.Status, parsed.Message)
	}
	return nil
}

func (c *MTalkzClient) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return defaultMTalkzBaseURL
}

func (c *MTalkzClient) senderID() string {
	if c.SenderID != "" {
		return c.SenderID
	}
	return defaultSenderID
}

func otpMessage(code string) string {
	return fmt.Sprintf("Your SAMD Directory OTP is %s. Valid for 5 minutes. Do not share.", code)
}
