// Package messaging is a thin client for the Telegram Bot API.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/remindr/internal/domain/model"
)

const (
	defaultAPIURL   = "https://api.telegram.org"
	defaultLongPoll = 30 * time.Second
	clientSlack     = 10 * time.Second
	parseModeHTML   = "HTML"
)

// Gateway sends messages and long-polls for inbound updates.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string) error
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]model.Update, error)
}

// Telegram implements Gateway over the Bot API.
type Telegram struct {
	client   *http.Client
	baseURL  string
	token    string
	longPoll time.Duration
}

// New creates a client for the bot identified by token.
func New(token string, opts ...Option) *Telegram {
	t := &Telegram{
		baseURL:  defaultAPIURL,
		token:    token,
		longPoll: defaultLongPoll,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: t.longPoll + clientSlack}
	}
	return t
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Send posts an HTML-formatted message to chatID.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	req := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseModeHTML,
		DisableWebPagePreview: true,
	}
	_, err := t.call(ctx, "sendMessage", req)
	return err
}

// GetUpdates long-polls for updates with ID >= offset. Updates without a text
// message are returned with a nil Message so the caller can still advance.
func (t *Telegram) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]model.Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        timeoutSec,
		AllowedUpdates: []string{"message"},
	}
	raw, err := t.call(ctx, "getUpdates", req)
	if err != nil {
		return nil, err
	}

	var items []update
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: getUpdates result: %w", ErrDecode, err)
	}
	out := make([]model.Update, 0, len(items))
	for _, it := range items {
		u := model.Update{ID: it.UpdateID}
		if it.Message != nil {
			u.Message = &model.Message{ChatID: it.Message.Chat.ID, Text: it.Message.Text}
		}
		out = append(out, u)
	}
	return out, nil
}

func (t *Telegram) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransport, t.redact(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, method, t.redactErr(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrTransport, method, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s (http %d): %w", ErrDecode, method, resp.StatusCode, err)
	}
	if !env.OK {
		return nil, fmt.Errorf("%w: %s: %d %s", ErrAPI, method, env.ErrorCode, env.Description)
	}
	return env.Result, nil
}

// redactErr strips the bot token from the URL carried by transport errors.
func (t *Telegram) redactErr(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		cp := *ue
		cp.URL = t.redact(ue.URL)
		return &cp
	}
	return err
}

func (t *Telegram) redact(s string) string {
	if t.token == "" {
		return s
	}
	return strings.ReplaceAll(s, t.token, "***")
}
