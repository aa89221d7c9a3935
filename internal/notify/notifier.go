package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"golang.org/x/text/language"

	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

// Field is one labelled line of a lead summary. Value is shown verbatim;
// ValueKey is translated instead when Value is empty. Note, if set, is
// appended in parentheses.
type Field struct {
	Label    i18n.Key
	Value    string
	ValueKey i18n.Key
	Note     i18n.Key
}

// Summary is the ordered, human-readable description of a lead.
type Summary struct {
	Title  i18n.Key
	Fields []Field
}

// Notifier formats lead summaries for the site owner and delivers them to a
// single chat.
type Notifier struct {
	sender ChatSender
	chatID string
	locale language.Tag
	logger *logging.Logger
}

// NewNotifier creates a notifier. locale is the site owner's language.
func NewNotifier(sender ChatSender, chatID string, locale language.Tag, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		sender: sender,
		chatID: strings.TrimSpace(chatID),
		locale: locale,
		logger: logger,
	}
}

// Format renders the summary as Telegram HTML. Every user-supplied value is
// escaped so it cannot open or close markup.
func (n *Notifier) Format(s Summary) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(i18n.T(n.locale, s.Title)))
	b.WriteString("</b>")
	for _, f := range s.Fields {
		value := f.Value
		if value == "" && f.ValueKey != "" {
			value = i18n.T(n.locale, f.ValueKey)
		}
		if f.Note != "" {
			value += " (" + i18n.T(n.locale, f.Note) + ")"
		}
		b.WriteString("\n")
		b.WriteString(html.EscapeString(i18n.T(n.locale, f.Label)))
		b.WriteString(": ")
		b.WriteString(html.EscapeString(value))
	}
	return b.String()
}

// Notify delivers the summary synchronously.
func (n *Notifier) Notify(ctx context.Context, s Summary) error {
	if n.sender == nil || n.chatID == "" {
		return ErrChatNotConfigured
	}
	if err := n.sender.SendMessage(ctx, n.chatID, n.Format(s)); err != nil {
		return fmt.Errorf("notify: send chat notification: %w", err)
	}
	n.logger.Debug("chat notification sent", "title", string(s.Title))
	return nil
}

// LogChatSender writes messages to the log instead of a chat. Development only.
type LogChatSender struct {
	logger *logging.Logger
}

// NewLogChatSender creates a log-only chat sender.
func NewLogChatSender(logger *logging.Logger) *LogChatSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogChatSender{logger: logger}
}

// SendMessage logs the message.
func (s *LogChatSender) SendMessage(ctx context.Context, chatID, text string) error {
	s.logger.Info("log chat sender: would send message", "text", text)
	return nil
}

var _ ChatSender = (*LogChatSender)(nil)
