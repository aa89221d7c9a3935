package notify

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

var telegramTracer = otel.Tracer("astroliana.internal.notify.telegram")

// ErrChatNotConfigured is returned when the bot token or chat id is missing.
var ErrChatNotConfigured = errors.New("notify: chat transport not configured")

// ChatSender delivers a text message to a chat.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// TelegramConfig controls the Telegram Bot API client.
type TelegramConfig struct {
	BotToken   string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// TelegramClient sends messages through the Telegram Bot API using the HTML
// parse mode.
type TelegramClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTelegramClient creates a configured client with sane defaults.
func NewTelegramClient(cfg TelegramConfig) (*TelegramClient, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, ErrChatNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &TelegramClient{
		token:      token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendMessage posts text to chatID. Returned errors never contain the bot
// token.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	ctx, span := telegramTracer.Start(ctx, "notify.telegram.send_message")
	defer span.End()
	span.SetAttributes(attribute.Int("telegram.text_length", len(text)))

	err := c.sendMessage(ctx, chatID, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "telegram send failed")
	}
	return err
}

func (c *TelegramClient) sendMessage(ctx context.Context, chatID, text string) error {
	if strings.TrimSpace(chatID) == "" {
		return ErrChatNotConfigured
	}
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("notify: encode telegram request: %w", err)
	}

	endpoint := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return c.redact(fmt.Errorf("notify: build telegram request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.redact(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out apiResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode >= 300 || decodeErr != nil || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		c.logger.Error("telegram returned error", "status", resp.StatusCode, "description", desc)
		return fmt.Errorf("notify: telegram returned status %d: %s", resp.StatusCode, desc)
	}
	return nil
}

// redact strips the request URL, which embeds the bot token, from transport
// errors.
func (c *TelegramClient) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("notify: telegram request failed: %w", urlErr.Err)
	}
	if strings.Contains(err.Error(), c.token) {
		return errors.New(strings.ReplaceAll(err.Error(), c.token, "[redacted]"))
	}
	return err
}

var _ ChatSender = (*TelegramClient)(nil)
