package relay

import (
	"context"
	"fmt"

	"github.com/coregx/relay/model"
	"github.com/google/uuid"
)

// Publisher orchestrates the publish path: admission control, client
// authentication, idempotent submission handling, persistence of the relay
// log, and dispatch of the first delivery attempt as a detached background
// task. The publish response reflects only the persisted acceptance of the
// message, never the delivery outcome.
//
// Thread safety: Safe for concurrent use. Concurrent identical submissions
// are collapsed by the store's uniqueness constraint on the idempotency key.
type Publisher struct {
	logs      RelayLogRepository
	auth      *Authenticator
	engine    *DeliveryEngine
	admission AdmissionController
	logger    Logger
	keygen    func() string
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher) error

// NewPublisher creates a new Publisher with the provided options.
//
// Required options:
//   - WithPublisherRepository: relay log repository
//   - WithPublisherAuthenticator: API-key authenticator
//   - WithPublisherEngine: delivery engine for detached attempts
//   - WithPublisherLogger: logger instance
//
// Optional options:
//   - WithPublisherAdmission: admission controller (default: allow all)
//   - WithPublisherKeyGenerator: idempotency key generator (default: UUID)
func NewPublisher(opts ...PublisherOption) (*Publisher, error) {
	p := &Publisher{
		admission: AllowAllAdmission{},
		keygen:    uuid.NewString,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply publisher option", err)
		}
	}

	if p.logs == nil {
		return nil, NewError(ErrCodeConfiguration, "RelayLogRepository is required (use WithPublisherRepository)")
	}
	if p.auth == nil {
		return nil, NewError(ErrCodeConfiguration, "Authenticator is required (use WithPublisherAuthenticator)")
	}
	if p.engine == nil {
		return nil, NewError(ErrCodeConfiguration, "DeliveryEngine is required (use WithPublisherEngine)")
	}
	if p.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithPublisherLogger)")
	}

	return p, nil
}

// WithPublisherRepository sets the relay log repository.
func WithPublisherRepository(logs RelayLogRepository) PublisherOption {
	return func(p *Publisher) error {
		if logs == nil {
			return fmt.Errorf("logs cannot be nil")
		}
		p.logs = logs
		return nil
	}
}

// WithPublisherAuthenticator sets the client authenticator.
func WithPublisherAuthenticator(auth *Authenticator) PublisherOption {
	return func(p *Publisher) error {
		if auth == nil {
			return fmt.Errorf("authenticator cannot be nil")
		}
		p.auth = auth
		return nil
	}
}

// WithPublisherEngine sets the delivery engine used for detached attempts.
func WithPublisherEngine(engine *DeliveryEngine) PublisherOption {
	return func(p *Publisher) error {
		if engine == nil {
			return fmt.Errorf("engine cannot be nil")
		}
		p.engine = engine
		return nil
	}
}

// WithPublisherAdmission sets the admission controller consulted before any
// business logic runs. Defaults to AllowAllAdmission.
func WithPublisherAdmission(admission AdmissionController) PublisherOption {
	return func(p *Publisher) error {
		if admission == nil {
			return fmt.Errorf("admission controller cannot be nil")
		}
		p.admission = admission
		return nil
	}
}

// WithPublisherLogger sets the logger instance.
func WithPublisherLogger(logger Logger) PublisherOption {
	return func(p *Publisher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// WithPublisherKeyGenerator sets the generator for server-assigned
// idempotency keys. Generated keys must be collision-resistant and are never
// derived from payload content.
func WithPublisherKeyGenerator(keygen func() string) PublisherOption {
	return func(p *Publisher) error {
		if keygen == nil {
			return fmt.Errorf("keygen cannot be nil")
		}
		p.keygen = keygen
		return nil
	}
}

// PublishResult represents the accepted state of a publish call.
type PublishResult struct {
	// Log is the relay log backing this submission — freshly created on
	// first acceptance, or the existing record's current state on replay.
	Log model.RelayLog

	// Replay is true when the idempotency key matched an existing record.
	Replay bool
}

// Publish accepts a relay message for at-least-once delivery.
//
// The process:
//  1. Validate the request and consult the admission controller
//  2. Authenticate the API key; verify it owns the asserted client ID
//  3. Resolve the effective idempotency key (caller key or generated)
//  4. Return the existing record verbatim on replay, or create a new
//     PENDING record — treating a unique-constraint violation from a
//     concurrent identical submission as a replay of the winning record
//  5. Hand the PENDING record to the delivery engine as a detached task
//
// Errors from the detached delivery work never surface here; they are only
// observable through the record's persisted state and the retry sweeper.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := req.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid publish request", err)
	}

	if !p.admission.Allow(req.AdmissionKey()) {
		return nil, NewError(ErrCodeRateLimited, "relay rate limit exceeded")
	}

	client, err := p.auth.Authenticate(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewError(ErrCodeAuthentication, "invalid API key")
	}
	if client.ID != req.ClientID {
		p.logger.Warnf("Client ID mismatch: asserted=%s, actual=%s", req.ClientID, client.ID)
		return nil, NewError(ErrCodeAuthorization, "client ID does not match API key")
	}

	key := req.IdempotencyKey
	if key == "" {
		key = p.keygen()
	}

	existing, err := p.logs.FindByIdempotencyKey(ctx, key)
	if err == nil {
		p.logger.Infof("Duplicate relay message detected: key=%s, id=%s, status=%s", key, existing.ID, existing.Status)
		p.dispatch(ctx, existing)
		return &PublishResult{Log: existing, Replay: true}, nil
	}
	if !IsNoData(err) {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to look up idempotency key", err)
	}

	rl := model.NewRelayLog(client.ID, key, req.Message, req.Meta)
	if err := p.logs.Create(ctx, &rl); err != nil {
		if IsDuplicateKey(err) {
			// A concurrent identical submission won the insert; its record
			// is authoritative.
			winner, readErr := p.logs.FindByIdempotencyKey(ctx, key)
			if readErr != nil {
				return nil, NewErrorWithCause(ErrCodeDatabase, "failed to re-read relay log after duplicate insert", readErr)
			}
			p.logger.Infof("Concurrent duplicate relay message collapsed: key=%s, id=%s", key, winner.ID)
			p.dispatch(ctx, winner)
			return &PublishResult{Log: winner, Replay: true}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to create relay log", err)
	}

	p.logger.Infof("Relay log created: id=%s, client=%s", rl.ID, rl.ClientID)
	p.dispatch(ctx, rl)

	return &PublishResult{Log: rl, Replay: false}, nil
}

// GetLog returns the current state of a relay log for the status view.
// The API key must authenticate to the client owning the record.
func (p *Publisher) GetLog(ctx context.Context, apiKey, logID string) (*model.RelayLog, error) {
	client, err := p.auth.Authenticate(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, NewError(ErrCodeAuthentication, "invalid API key")
	}

	rl, err := p.logs.Load(ctx, logID)
	if err != nil {
		if IsNoData(err) {
			return nil, NewErrorWithCause(ErrCodeNotFound, "relay log not found", err)
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load relay log", err)
	}
	if rl.ClientID != client.ID {
		return nil, NewError(ErrCodeAuthorization, "relay log belongs to another client")
	}

	return &rl, nil
}

// dispatch hands a still-PENDING record to the delivery engine as a
// supervised detached task. The task outlives the request context; its
// failures are captured into the record by the engine and logged here,
// never propagated to the publish caller, and a panic cannot reach the
// request-handling path.
func (p *Publisher) dispatch(ctx context.Context, rl model.RelayLog) {
	if rl.Status != model.StatusPending {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Errorf("Relay delivery task panicked: id=%s: %v", rl.ID, r)
			}
		}()

		if _, err := p.engine.AttemptDelivery(detached, rl.ID); err != nil {
			p.logger.Errorf("Failed to process relay message %s: %v", rl.ID, err)
		}
	}()
}
