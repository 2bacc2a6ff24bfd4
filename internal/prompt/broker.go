package prompt

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/dwhitley/credflow/internal/logger"
)

// PassphraseTTL is how long a passphrase request may stay unanswered before
// it resolves as no-answer.
const PassphraseTTL = 120 * time.Second

// PassphraseResult is the outcome of one passphrase request.
// Cancelled means the user aborted the whole unlock flow; Skipped abandons
// only this key. When neither is set, Passphrase holds the answer, which may
// legitimately be empty.
type PassphraseResult struct {
	Passphrase string
	Cancelled  bool
	Skipped    bool
}

// pendingPassphrase is one live request. The channel is buffered and the
// sync.Once guarantees a single resolution no matter how response, timeout,
// and cancellation race.
type pendingPassphrase struct {
	surface Surface
	created time.Time
	once    sync.Once
	ch      chan *PassphraseResult
}

func (p *pendingPassphrase) resolve(res *PassphraseResult) {
	p.once.Do(func() { p.ch <- res })
}

// Broker owns the pending-request tables for one application session.
// Construct with NewBroker and tear down with Close.
type Broker struct {
	log     logger.Logger
	pending *ttlcache.Cache[string, *pendingPassphrase]

	kiMu      sync.Mutex
	kiPending map[string]chan []string
}

// NewBroker creates a Broker with the standard 120s passphrase TTL.
func NewBroker(log logger.Logger) *Broker {
	return newBroker(log, PassphraseTTL)
}

func newBroker(log logger.Logger, ttl time.Duration) *Broker {
	if log == nil {
		log = logger.Noop()
	}

	b := &Broker{
		log:       log,
		kiPending: make(map[string]chan []string),
	}

	b.pending = ttlcache.New[string, *pendingPassphrase](
		ttlcache.WithTTL[string, *pendingPassphrase](ttl),
		ttlcache.WithDisableTouchOnHit[string, *pendingPassphrase](),
	)
	b.pending.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *pendingPassphrase]) {
		if reason != ttlcache.EvictionReasonExpired {
			// Explicit resolutions delete their own entries.
			return
		}
		p := item.Value()
		p.resolve(nil)
		b.log.Info("passphrase request %s timed out after %s", item.Key(), time.Since(p.created).Round(time.Second))

		// Best-effort dismissal; the surface may already be gone.
		if p.surface.Alive() {
			if err := p.surface.SendPassphraseTimeout(item.Key()); err != nil {
				b.log.Debug("timeout notification for %s failed: %v", item.Key(), err)
			}
		}
	})
	go b.pending.Start()

	return b
}

// Close stops the expiry loop and resolves every still-pending request as
// no-answer so blocked callers return.
func (b *Broker) Close() {
	b.pending.Stop()
	for _, item := range b.pending.Items() {
		item.Value().resolve(nil)
	}
	b.pending.DeleteAll()

	b.kiMu.Lock()
	for id, ch := range b.kiPending {
		close(ch)
		delete(b.kiPending, id)
	}
	b.kiMu.Unlock()
}

// RequestPassphrase asks the surface for the passphrase of one key and blocks
// until the request resolves. A nil result means no answer was obtained:
// the request timed out, the surface was gone, or ctx was cancelled.
func (b *Broker) RequestPassphrase(ctx context.Context, surface Surface, keyPath, keyName, hostname string) *PassphraseResult {
	if surface == nil || !surface.Alive() {
		b.log.Debug("no surface for passphrase request (%s)", keyPath)
		return nil
	}

	id := uuid.NewString()
	p := &pendingPassphrase{
		surface: surface,
		created: time.Now(),
		ch:      make(chan *PassphraseResult, 1),
	}
	b.pending.Set(id, p, ttlcache.DefaultTTL)

	err := surface.SendPassphraseRequest(PassphraseRequest{
		RequestID: id,
		KeyPath:   keyPath,
		KeyName:   keyName,
		Hostname:  hostname,
	})
	if err != nil {
		b.log.Warn("passphrase request %s could not be sent: %v", id, err)
		p.resolve(nil)
		b.pending.Delete(id)
		return nil
	}

	select {
	case res := <-p.ch:
		return res
	case <-ctx.Done():
		p.resolve(nil)
		b.pending.Delete(id)
		// Drain the buffered resolution so nothing leaks.
		return <-p.ch
	}
}

// ResolvePassphrase delivers the surface's response for a pending request.
// Late or duplicate resolutions are silent no-ops and return false.
func (b *Broker) ResolvePassphrase(requestID string, res PassphraseResult) bool {
	item := b.pending.Get(requestID)
	if item == nil {
		b.log.Debug("stale passphrase response for %s", requestID)
		return false
	}
	item.Value().resolve(&res)
	b.pending.Delete(requestID)
	return true
}

// PendingPassphrases returns the number of live passphrase requests.
func (b *Broker) PendingPassphrases() int {
	return b.pending.Len()
}
