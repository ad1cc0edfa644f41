package mediactl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Alerter fans one message out to every channel that has its env keys set.
// Unconfigured channels are skipped silently; no channel at all is a no-op,
// not an error.
type Alerter struct {
	env    map[string]string
	client *http.Client
}

func NewAlerter(env map[string]string) *Alerter {
	return &Alerter{
		env:    env,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers to all configured channels. Level is one of info, warn,
// error. Per-channel failures are logged and do not stop the fan-out.
func (a *Alerter) Send(ctx context.Context, level, title, message string) error {
	sent := 0
	type channel struct {
		name string
		fn   func(context.Context, string, string, string) error
	}
	channels := []channel{
		{"ntfy", a.sendNtfy},
		{"discord", a.sendDiscord},
		{"telegram", a.sendTelegram},
		{"email", a.sendEmail},
	}
	var lastErr error
	for _, ch := range channels {
		err := ch.fn(ctx, level, title, message)
		if err == errChannelUnconfigured {
			continue
		}
		if err != nil {
			log.Warn("alert channel failed", zap.String("channel", ch.name), zap.Error(err))
			lastErr = err
			continue
		}
		sent++
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

var errChannelUnconfigured = fmt.Errorf("channel unconfigured")

func (a *Alerter) sendNtfy(ctx context.Context, level, title, message string) error {
	topic := a.env["NTFY_TOPIC"]
	if topic == "" {
		return errChannelUnconfigured
	}
	server := a.env["NTFY_URL"]
	if server == "" {
		server = "https://ntfy.sh"
	}
	url := strings.TrimRight(server, "/") + "/" + topic

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", ntfyPriority(level))
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func ntfyPriority(level string) string {
	switch level {
	case "error":
		return "high"
	case "warn":
		return "default"
	default:
		return "low"
	}
}

func (a *Alerter) sendDiscord(ctx context.Context, level, title, message string) error {
	webhook := a.env["DISCORD_WEBHOOK_URL"]
	if webhook == "" {
		return errChannelUnconfigured
	}
	payload := map[string]any{
		"content": fmt.Sprintf("**%s %s**\n%s", levelEmoji(level), title, message),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func levelEmoji(level string) string {
	switch level {
	case "error":
		return "🔴"
	case "warn":
		return "🟡"
	default:
		return "🟢"
	}
}

func (a *Alerter) sendTelegram(_ context.Context, level, title, message string) error {
	token := a.env["TELEGRAM_BOT_TOKEN"]
	chat := a.env["TELEGRAM_CHAT_ID"]
	if token == "" || chat == "" {
		return errChannelUnconfigured
	}
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return fmt.Errorf("TELEGRAM_CHAT_ID must be numeric: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s %s\n%s", levelEmoji(level), title, message))
	if _, err := bot.Send(msg); err != nil {
		return err
	}
	return nil
}

func (a *Alerter) sendEmail(_ context.Context, level, title, message string) error {
	host := a.env["SMTP_HOST"]
	to := a.env["SMTP_TO"]
	if host == "" || to == "" {
		return errChannelUnconfigured
	}
	port := a.env["SMTP_PORT"]
	if port == "" {
		port = "587"
	}
	from := a.env["SMTP_FROM"]
	if from == "" {
		from = a.env["SMTP_USER"]
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: [%s] %s\r\n\r\n%s\r\n",
		from, to, strings.ToUpper(level), title, message)

	var auth smtp.Auth
	if a.env["SMTP_USER"] != "" {
		auth = smtp.PlainAuth("", a.env["SMTP_USER"], a.env["SMTP_PASS"], host)
	}
	return smtp.SendMail(host+":"+port, auth, from, []string{to}, []byte(body))
}
