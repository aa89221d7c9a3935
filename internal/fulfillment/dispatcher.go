// Package fulfillment emails the requested lead material to the lead.
package fulfillment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/notify"
	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

// ErrUnknownMaterial is returned when no material is registered for a kind.
var ErrUnknownMaterial = errors.New("fulfillment: unknown material")

// Request identifies what to send and to whom.
type Request struct {
	Kind leads.Kind
	To   string
	Name string
}

// Dispatcher renders lead material and hands it to an email sender.
type Dispatcher struct {
	sender    notify.EmailSender
	source    AttachmentSource
	materials map[leads.Kind]Material
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher. A nil materials map uses
// DefaultMaterials.
func NewDispatcher(sender notify.EmailSender, source AttachmentSource, materials map[leads.Kind]Material, logger *logging.Logger) *Dispatcher {
	if materials == nil {
		materials = DefaultMaterials()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		sender:    sender,
		source:    source,
		materials: materials,
		logger:    logger,
	}
}

// Has reports whether material is registered for kind.
func (d *Dispatcher) Has(kind leads.Kind) bool {
	_, ok := d.materials[kind]
	return ok
}

// Fulfill renders and sends the material for req.Kind.
func (d *Dispatcher) Fulfill(ctx context.Context, req Request) error {
	if d.sender == nil {
		return notify.ErrEmailNotConfigured
	}
	m, ok := d.materials[req.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMaterial, req.Kind)
	}

	msg, err := d.compose(ctx, m, req)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("fulfillment: send %s: %w", req.Kind, err)
	}
	d.logger.Info("lead material sent", "lead_type", req.Kind.String(), "attachments", len(msg.Attachments))
	return nil
}

func (d *Dispatcher) compose(ctx context.Context, m Material, req Request) (notify.EmailMessage, error) {
	data := templateData{Name: strings.TrimSpace(req.Name)}

	var htmlBuf, textBuf bytes.Buffer
	if m.HTML != nil {
		if err := m.HTML.Execute(&htmlBuf, data); err != nil {
			return notify.EmailMessage{}, fmt.Errorf("fulfillment: render html %s: %w", req.Kind, err)
		}
	}
	if m.Text != nil {
		if err := m.Text.Execute(&textBuf, data); err != nil {
			return notify.EmailMessage{}, fmt.Errorf("fulfillment: render text %s: %w", req.Kind, err)
		}
	}

	msg := notify.EmailMessage{
		To:      req.To,
		ToName:  data.Name,
		Subject: m.Subject,
		Body:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}

	if m.Attachment != "" {
		if d.source == nil {
			return notify.EmailMessage{}, fmt.Errorf("fulfillment: no attachment source for %s", m.Attachment)
		}
		content, err := d.source.Load(ctx, m.Attachment)
		if err != nil {
			return notify.EmailMessage{}, fmt.Errorf("fulfillment: load attachment: %w", err)
		}
		msg.Attachments = []notify.Attachment{{
			Filename:    m.Attachment,
			ContentType: m.ContentType,
			Content:     content,
		}}
	}
	return msg, nil
}
