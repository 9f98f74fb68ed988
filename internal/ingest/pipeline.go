// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/metrics"
	"github.com/tomtom215/capturehub/internal/models"
	"github.com/tomtom215/capturehub/internal/session"
)

// Pipeline errors. Process wraps one of these; callers classify with errors.Is.
var (
	// ErrSkipped marks a message that is recognized but not captured:
	// non-media content, broadcast/status messages, system notifications.
	ErrSkipped = errors.New("message skipped")

	// ErrRetrieval means the payload could not be fetched.
	ErrRetrieval = errors.New("payload retrieval failed")

	// ErrStore means the payload could not be written to the binary store.
	ErrStore = errors.New("binary store write failed")

	// ErrCatalog means the catalog rejected the new entry. The binary was
	// removed again.
	ErrCatalog = errors.New("catalog insert failed")
)

// Catalog is the part of the catalog the pipeline writes to.
type Catalog interface {
	Insert(ctx context.Context, entry *models.MediaEntry) error
}

// BlobStore is the part of the binary store the pipeline writes to.
type BlobStore interface {
	Write(name string, data []byte) error
	Delete(name string) error
}

// StateNotifier receives session connection updates for live viewers.
type StateNotifier interface {
	SessionState(status models.SessionStatus)
}

// Config configures the pipeline.
type Config struct {
	// QueueSize bounds messages waiting for processing. Enqueue blocks
	// when the queue is full.
	QueueSize int

	// FetchTimeout bounds a single payload retrieval.
	FetchTimeout time.Duration

	// MaxNameAttempts bounds filename regeneration on collision.
	MaxNameAttempts int

	// URLPrefix is the public path binaries are served under.
	URLPrefix string

	// SkipFromMe drops messages sent by the session's own account.
	SkipFromMe bool

	// DrainTimeout bounds processing of already queued messages on shutdown.
	DrainTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:       64,
		FetchTimeout:    60 * time.Second,
		MaxNameAttempts: 5,
		URLPrefix:       "/files",
		DrainTimeout:    15 * time.Second,
	}
}

// Pipeline turns inbound session messages into catalog entries. It
// implements session.Sink. Messages are processed one at a time in arrival
// order by Run.
type Pipeline struct {
	cfg      Config
	catalog  Catalog
	blobs    BlobStore
	notifier StateNotifier
	queue    chan *session.InboundMessage

	now   func() time.Time
	newID func() string

	nameMu   sync.Mutex
	lastNano int64

	stateMu sync.RWMutex
	state   models.SessionStatus

	logger zerolog.Logger
}

// New creates a pipeline. notifier may be nil.
func New(cfg Config, cat Catalog, blobs BlobStore, notifier StateNotifier) *Pipeline {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.MaxNameAttempts <= 0 {
		cfg.MaxNameAttempts = def.MaxNameAttempts
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = def.URLPrefix
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}

	return &Pipeline{
		cfg:      cfg,
		catalog:  cat,
		blobs:    blobs,
		notifier: notifier,
		queue:    make(chan *session.InboundMessage, cfg.QueueSize),
		now:      time.Now,
		newID:    uuid.NewString,
		state: models.SessionStatus{
			State: session.StateConnecting,
			Since: time.Now().UTC(),
		},
		logger: logging.WithComponent("ingest"),
	}
}

// Enqueue queues msg for processing, blocking while the queue is full.
func (p *Pipeline) Enqueue(ctx context.Context, msg *session.InboundMessage) error {
	select {
	case p.queue <- msg:
		metrics.IngestQueueDepth.Set(float64(len(p.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateState records a session connection change and forwards it to live
// viewers.
func (p *Pipeline) UpdateState(change session.StateChange) {
	at := change.At
	if at.IsZero() {
		at = p.now()
	}
	status := models.SessionStatus{
		State:  change.State,
		Reason: change.Reason,
		Since:  at.UTC(),
	}

	p.stateMu.Lock()
	p.state = status
	p.stateMu.Unlock()

	metrics.UpdateSessionState(status.State, session.KnownStates)

	event := p.logger.Info()
	if status.State == session.StateClosed {
		event = p.logger.Warn()
	}
	event.Str("state", status.State).Str("reason", status.Reason).Msg("Session connection update")

	if p.notifier != nil {
		p.notifier.SessionState(status)
	}
}

// SessionStatus returns the last reported connection state.
func (p *Pipeline) SessionStatus() models.SessionStatus {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Run processes queued messages until ctx is canceled, then drains what is
// already queued within DrainTimeout. A message in flight when ctx ends is
// finished; its own duration is bounded by FetchTimeout.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info().Int("queue_size", p.cfg.QueueSize).Msg("Ingest pipeline started")

	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		case msg := <-p.queue:
			metrics.IngestQueueDepth.Set(float64(len(p.queue)))
			p.handle(work, msg)
		}
	}
}

func (p *Pipeline) drain() {
	if len(p.queue) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DrainTimeout)
	defer cancel()

	p.logger.Info().Int("queued", len(p.queue)).Msg("Draining ingest queue")
	for {
		select {
		case msg := <-p.queue:
			p.handle(ctx, msg)
		default:
			metrics.IngestQueueDepth.Set(0)
			return
		}
		if ctx.Err() != nil {
			p.logger.Warn().Int("abandoned", len(p.queue)).Msg("Ingest drain timed out")
			return
		}
	}
}

// handle runs Process and logs the outcome. Failures never stop the loop.
func (p *Pipeline) handle(ctx context.Context, msg *session.InboundMessage) {
	ctx = messageContext(ctx, msg)
	log := p.log(ctx)

	entry, err := p.Process(ctx, msg)
	switch {
	case err == nil:
		log.Info().
			Str("id", entry.ID).
			Str("type", string(entry.Kind)).
			Str("sender", entry.Sender).
			Str("file", entry.File).
			Msg("Captured media")
	case errors.Is(err, ErrSkipped):
		log.Debug().Err(err).Msg("Message skipped")
	default:
		l := log.Error().Err(err)
		if msg != nil {
			l = l.Str("sender", msg.Sender)
		}
		l.Msg("Failed to capture media")
	}
}

// messageContext tags ctx with a correlation id and the inbound message id,
// so the pipeline's and the catalog's log lines for one capture can be
// joined. Ids already present are kept.
func messageContext(ctx context.Context, msg *session.InboundMessage) context.Context {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	if msg != nil && msg.ID != "" && logging.MessageIDFromContext(ctx) == "" {
		ctx = logging.ContextWithMessageID(ctx, msg.ID)
	}
	return ctx
}

// log is the pipeline logger with the ids carried by ctx.
func (p *Pipeline) log(ctx context.Context) *zerolog.Logger {
	return logging.Ctx(logging.ContextWithLogger(ctx, p.logger))
}

// Process captures one message synchronously. It returns the new entry, or
// an error wrapping ErrSkipped, ErrRetrieval, ErrStore or ErrCatalog. On any
// error no catalog entry exists and no binary is left behind.
func (p *Pipeline) Process(ctx context.Context, msg *session.InboundMessage) (*models.MediaEntry, error) {
	ctx = messageContext(ctx, msg)

	kind, err := p.filter(msg)
	if err != nil {
		metrics.RecordIngestOutcome(metrics.OutcomeSkipped)
		return nil, err
	}

	data, err := p.fetch(ctx, msg)
	if err != nil {
		metrics.RecordIngestOutcome(metrics.OutcomeRetrievalFailed)
		return nil, err
	}

	mimeType := mimetype.Detect(data).String()
	if !kind.MatchesMIME(mimeType) {
		p.log(ctx).Warn().
			Str("type", string(kind)).
			Str("mime_type", mimeType).
			Msg("Payload content does not match message type")
	}

	name, err := p.writeBlob(kind, data)
	if err != nil {
		metrics.RecordIngestOutcome(metrics.OutcomeStoreFailed)
		return nil, err
	}

	entry := &models.MediaEntry{
		ID:         p.newID(),
		Kind:       kind,
		URL:        p.url(name),
		File:       name,
		Sender:     msg.Sender,
		CapturedAt: p.now().UTC(),
		MIMEType:   mimeType,
		Size:       int64(len(data)),
	}

	if err := p.catalog.Insert(ctx, entry); err != nil {
		if derr := p.blobs.Delete(name); derr != nil && !errors.Is(derr, blobstore.ErrNotFound) {
			p.log(ctx).Error().Err(derr).Str("file", name).Msg("Failed to remove binary after catalog rejection")
		}
		metrics.RecordIngestOutcome(metrics.OutcomeCatalogFailed)
		return nil, fmt.Errorf("%w: %w", ErrCatalog, err)
	}

	metrics.RecordIngestOutcome(metrics.OutcomeStored)
	metrics.RecordIngestBytes(string(kind), len(data))
	return entry, nil
}

func (p *Pipeline) filter(msg *session.InboundMessage) (models.MediaKind, error) {
	switch {
	case msg == nil:
		return "", fmt.Errorf("%w: empty event", ErrSkipped)
	case msg.Broadcast:
		return "", fmt.Errorf("%w: broadcast message", ErrSkipped)
	case msg.System:
		return "", fmt.Errorf("%w: system notification", ErrSkipped)
	case msg.FromMe && p.cfg.SkipFromMe:
		return "", fmt.Errorf("%w: own message", ErrSkipped)
	}

	variant := msg.Variant()
	kind, ok := variant.MediaKind()
	if !ok {
		return "", fmt.Errorf("%w: %s content", ErrSkipped, variant)
	}
	return kind, nil
}

func (p *Pipeline) fetch(ctx context.Context, msg *session.InboundMessage) ([]byte, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("%w: message %s has no payload", ErrRetrieval, msg.ID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	data, err := msg.Payload.FetchPayload(fetchCtx)
	metrics.RecordIngestFetch(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: message %s: %w", ErrRetrieval, msg.ID, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: message %s: empty payload", ErrRetrieval, msg.ID)
	}
	return data, nil
}

// writeBlob stores data under a fresh name, regenerating the name when it is
// already taken. Existing binaries are never overwritten.
func (p *Pipeline) writeBlob(kind models.MediaKind, data []byte) (string, error) {
	for attempt := 0; attempt < p.cfg.MaxNameAttempts; attempt++ {
		name := p.nextName(kind)
		err := p.blobs.Write(name, data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, blobstore.ErrAlreadyExists) {
			return "", fmt.Errorf("%w: %s: %w", ErrStore, name, err)
		}
		p.logger.Debug().Str("file", name).Msg("Generated filename taken, regenerating")
	}
	return "", fmt.Errorf("%w: no free filename after %d attempts", ErrStore, p.cfg.MaxNameAttempts)
}

// nextName returns <kind>-<unixnano><ext>. The timestamp is forced strictly
// increasing so a coarse or stalled clock still yields distinct names.
func (p *Pipeline) nextName(kind models.MediaKind) string {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()

	n := p.now().UnixNano()
	if n <= p.lastNano {
		n = p.lastNano + 1
	}
	p.lastNano = n
	return fmt.Sprintf("%s-%d%s", kind, n, kind.Extension())
}

func (p *Pipeline) url(name string) string {
	prefix := "/" + strings.Trim(p.cfg.URLPrefix, "/")
	return path.Join(prefix, name)
}
