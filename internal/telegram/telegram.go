package telegram

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// APIBaseURL is the Bot API root; the bot token is appended to it
	APIBaseURL = "https://api.telegram.org/bot"
	timeout    = 10 * time.Second

	// MaxMessageLength is the Bot API limit for message text
	MaxMessageLength = 4096
)

// InlineKeyboardButton is a button shown under a message
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// InlineKeyboardMarkup is a grid of inline buttons
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Client represents a Telegram Bot API client
type Client struct {
	botToken string
	client   *resty.Client
}

// NewClient creates a new Telegram client
func NewClient(botToken string) (*Client, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	return &Client{
		botToken: botToken,
		client:   resty.New().SetBaseURL(APIBaseURL + botToken).SetTimeout(timeout),
	}, nil
}

// WithAPIURL points the client at a different Bot API root
func (c *Client) WithAPIURL(apiBaseURL string) *Client {
	c.client.SetBaseURL(apiBaseURL + c.botToken)
	return c
}

// SendMessage sends an HTML message to a chat
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	return c.SendMessageWithKeyboard(ctx, chatID, text, nil)
}

// SendMessageWithKeyboard sends an HTML message with inline buttons
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID, text string, keyboard *InlineKeyboardMarkup) error {
	if chatID == "" {
		return fmt.Errorf("chat ID is required")
	}
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	return c.call(ctx, "sendMessage", c.client.R().SetBody(payload))
}

// SendDocument uploads a file to a chat with an optional HTML caption
func (c *Client) SendDocument(ctx context.Context, chatID, filename string, data []byte, caption string) error {
	if chatID == "" {
		return fmt.Errorf("chat ID is required")
	}

	fields := map[string]string{"chat_id": chatID}
	if caption != "" {
		fields["caption"] = caption
		fields["parse_mode"] = "HTML"
	}

	req := c.client.R().
		SetFormData(fields).
		SetFileReader("document", filename, bytes.NewReader(data))
	return c.call(ctx, "sendDocument", req)
}

func (c *Client) call(ctx context.Context, method string, req *resty.Request) error {
	var result apiResponse
	res, err := req.
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Post("/" + method)
	if err != nil {
		// resty errors carry the request URL, which embeds the bot token
		return fmt.Errorf("%s: request failed: %w", method, redact(err, c.botToken))
	}

	if res.StatusCode() != http.StatusOK {
		if result.Description != "" {
			return fmt.Errorf("telegram API error (status %d): %s", res.StatusCode(), result.Description)
		}
		return fmt.Errorf("telegram API error (status %d)", res.StatusCode())
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	msg := err.Error()
	if secret == "" || !strings.Contains(msg, secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, secret, "<token>"), err: err}
}
