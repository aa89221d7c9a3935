// Package pipeline runs a lead submission through rate limiting, validation
// and the notification, fulfillment and analytics side effects.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/TrollHead15/AstroLiana/internal/analytics"
	"github.com/TrollHead15/AstroLiana/internal/fulfillment"
	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/notify"
	"github.com/TrollHead15/AstroLiana/internal/observability/metrics"
	"github.com/TrollHead15/AstroLiana/internal/ratelimit"
	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

var tracer = otel.Tracer("astroliana.internal.pipeline")

const (
	DefaultChatTimeout  = 10 * time.Second
	DefaultEmailTimeout = 15 * time.Second
)

// Notifier delivers the owner notification. Failure aborts the submission.
type Notifier interface {
	Notify(ctx context.Context, s notify.Summary) error
}

// Fulfiller sends the requested material. Failure is logged only.
type Fulfiller interface {
	Fulfill(ctx context.Context, req fulfillment.Request) error
}

// Tracker records analytics events without blocking.
type Tracker interface {
	Track(event string, props analytics.Properties)
}

// Deps are the collaborators a pipeline drives.
type Deps struct {
	Limiter   *ratelimit.Limiter
	Notifier  Notifier
	Fulfiller Fulfiller
	Tracker   Tracker
	Metrics   *metrics.LeadMetrics
	Logger    *logging.Logger
}

// Config tunes the pipeline.
type Config struct {
	Descriptors   map[leads.Kind]Descriptor
	ChatTimeout   time.Duration
	EmailTimeout  time.Duration
	DefaultLocale language.Tag
	Clock         func() time.Time
}

// Pipeline processes submissions for every lead kind.
type Pipeline struct {
	limiter       *ratelimit.Limiter
	notifier      Notifier
	fulfiller     Fulfiller
	tracker       Tracker
	metrics       *metrics.LeadMetrics
	logger        *logging.Logger
	descriptors   map[leads.Kind]Descriptor
	chatTimeout   time.Duration
	emailTimeout  time.Duration
	defaultLocale language.Tag
	clock         func() time.Time
}

// New builds a pipeline. It fails when a required collaborator is missing or
// when any lead kind lacks a complete descriptor.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Limiter == nil {
		return nil, errors.New("pipeline: rate limiter required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("pipeline: notifier required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if cfg.Descriptors == nil {
		cfg.Descriptors = DefaultDescriptors()
	}
	if err := checkDescriptors(cfg.Descriptors); err != nil {
		return nil, err
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = DefaultChatTimeout
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = DefaultEmailTimeout
	}
	if cfg.DefaultLocale == language.Und {
		cfg.DefaultLocale = i18n.Russian
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Pipeline{
		limiter:       deps.Limiter,
		notifier:      deps.Notifier,
		fulfiller:     deps.Fulfiller,
		tracker:       deps.Tracker,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		descriptors:   cfg.Descriptors,
		chatTimeout:   cfg.ChatTimeout,
		emailTimeout:  cfg.EmailTimeout,
		defaultLocale: cfg.DefaultLocale,
		clock:         cfg.Clock,
	}, nil
}

// Request is one inbound submission. BodyErr is set when the body could not
// be read, for example because it exceeded the size cap.
type Request struct {
	Identifier string
	Body       []byte
	BodyErr    error
	Locale     language.Tag
}

// Outcome is the result of processing a submission.
type Outcome struct {
	State      State
	Status     int
	Envelope   Envelope
	Decision   ratelimit.Decision
	Dispatches []DispatchResult
}

// Process runs one submission to a terminal state. It never retries.
func (p *Pipeline) Process(ctx context.Context, kind leads.Kind, req Request) Outcome {
	start := p.clock()
	ctx, span := tracer.Start(ctx, "pipeline.process")
	defer span.End()
	span.SetAttributes(attribute.String("lead.kind", kind.String()))

	locale := req.Locale
	if locale == language.Und {
		locale = p.defaultLocale
	}
	logger := p.logger.With("lead_type", kind.String())

	out := p.run(ctx, kind, req, locale, logger)
	out.Status = out.State.HTTPStatus()

	span.SetAttributes(
		attribute.String("pipeline.state", out.State.String()),
		attribute.Int("http.status_code", out.Status),
	)
	if out.State == StateFailedNotification {
		span.SetStatus(codes.Error, "notification failed")
	}
	p.metrics.ObserveSubmission(kind.String(), out.State.String(), p.clock().Sub(start))
	return out
}

func (p *Pipeline) run(ctx context.Context, kind leads.Kind, req Request, locale language.Tag, logger *logging.Logger) Outcome {
	// RateLimited
	decision := p.limiter.Admit(req.Identifier)
	out := Outcome{Decision: decision}
	if !decision.Allowed {
		p.metrics.ObserveRateLimited()
		logger.Info("rate limit exceeded", "identifier", req.Identifier, "reset_at", decision.ResetAt)
		return p.terminate(out, StateRejectedRateLimit, failure(locale, i18n.MsgRateLimited))
	}

	desc, ok := p.descriptors[kind]
	if !ok {
		logger.Error("no descriptor for lead kind")
		return p.terminate(out, StateRejectedBadBody, failure(locale, i18n.MsgMalformedBody))
	}

	// ParsingBody and Validating
	if req.BodyErr != nil {
		logger.Info("request body rejected", "error", req.BodyErr)
		return p.terminate(out, StateRejectedBadBody, failure(locale, i18n.MsgMalformedBody))
	}
	sub, err := desc.Schema.Validate(req.Body, p.clock())
	if err != nil {
		var verr *leads.ValidationError
		if errors.As(err, &verr) {
			logger.Info("lead validation failed", "error", verr.Error())
			return p.terminate(out, StateRejectedValidation, validationFailure(locale, verr))
		}
		logger.Info("malformed lead body", "error", err)
		return p.terminate(out, StateRejectedBadBody, failure(locale, i18n.MsgMalformedBody))
	}
	sub = withDefaults(sub)
	lead := sub.Lead()

	// Notifying
	notifyErr := p.notify(ctx, desc.Summary(sub))
	out.Dispatches = append(out.Dispatches, p.record(ctx, StepNotification, notifyErr))
	if notifyErr != nil {
		logger.Error("lead notification failed", "error", notifyErr)
		return p.terminate(out, StateFailedNotification, failure(locale, i18n.MsgNotificationFailed))
	}
	p.track(analytics.EventTelegramMessageSent, desc, lead, nil)

	// Fulfilling
	message := desc.SuccessMessage
	fulfillErr := p.fulfill(ctx, desc.Fulfillment(sub))
	out.Dispatches = append(out.Dispatches, p.record(ctx, StepFulfillment, fulfillErr))
	if fulfillErr != nil {
		logger.Warn("lead material not sent", "error", fulfillErr)
		message = i18n.MsgMaterialDelayed
	} else {
		p.track(analytics.EventEmailSent, desc, lead, nil)
	}

	// Tracking
	p.track(analytics.EventFormSubmitted, desc, lead, analytics.Properties{"emailDelivered": fulfillErr == nil})
	var trackErr error
	if p.tracker == nil {
		trackErr = errors.New("analytics not configured")
	}
	out.Dispatches = append(out.Dispatches, p.record(ctx, StepAnalytics, trackErr))

	// Responding
	logger.Info("lead processed", "email_delivered", fulfillErr == nil)
	return p.terminate(out, StateCompleted, Envelope{Success: true, Message: i18n.T(locale, message)})
}

// record captures a side-effect outcome on the span and in metrics.
func (p *Pipeline) record(ctx context.Context, step Step, err error) DispatchResult {
	res := DispatchResult{Step: step, Succeeded: err == nil, Err: err}
	trace.SpanFromContext(ctx).AddEvent("dispatch", trace.WithAttributes(
		attribute.String("dispatch.step", string(step)),
		attribute.Bool("dispatch.succeeded", res.Succeeded),
	))
	p.metrics.ObserveDispatch(string(step), res.Succeeded)
	return res
}

func (p *Pipeline) terminate(out Outcome, state State, env Envelope) Outcome {
	out.State = state
	out.Envelope = env
	return out
}

// notify is awaited with its own deadline and is not cancelled when the
// client goes away, so a lead is never half-delivered.
func (p *Pipeline) notify(ctx context.Context, s notify.Summary) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.chatTimeout)
	defer cancel()
	return p.notifier.Notify(ctx, s)
}

func (p *Pipeline) fulfill(ctx context.Context, req fulfillment.Request) error {
	if p.fulfiller == nil {
		return notify.ErrEmailNotConfigured
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.emailTimeout)
	defer cancel()
	return p.fulfiller.Fulfill(ctx, req)
}

func (p *Pipeline) track(event string, desc Descriptor, lead leads.Contact, extra analytics.Properties) {
	if p.tracker == nil {
		return
	}
	props := analytics.Properties{
		analytics.PropEmail:    lead.Email,
		analytics.PropName:     lead.Name,
		analytics.PropLeadType: desc.AnalyticsLabel,
	}
	for k, v := range extra {
		props[k] = v
	}
	p.tracker.Track(event, props)
}

// Now returns the pipeline clock reading.
func (p *Pipeline) Now() time.Time {
	return p.clock()
}
