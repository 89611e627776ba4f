// Package tracking polls the location of one selected entity and keeps a map
// marker on its latest position.
package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/metrics"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

// DefaultInterval is the fixed poll period.
const DefaultInterval = 5 * time.Second

// Fetcher returns the current position of an entity.
type Fetcher interface {
	Position(ctx context.Context, entityID string) (model.TrackedPosition, error)
}

// Marker is the map marker moved by each applied sample.
type Marker interface {
	MoveTo(p model.TrackedPosition)
}

// Locator reports the zone containing a point.
type Locator interface {
	ZoneAt(lat, lng float64) (int64, bool)
}

// Ticker is the subset of time.Ticker the poller uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

type State int

const (
	Idle State = iota
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Status is a read-only view of the poller.
type Status struct {
	State    string                 `json:"state"`
	EntityID string                 `json:"entityId,omitempty"`
	Interval string                 `json:"interval"`
	Latest   *model.TrackedPosition `json:"latest,omitempty"`
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}
func WithTicker(fn TickerFunc) Option { return func(p *Poller) { p.newTicker = fn } }
func WithLocator(l Locator) Option { return func(p *Poller) { p.locator = l } }
func WithLogger(l logging.Logger) Option { return func(p *Poller) { p.log = l } }

// WithFetchTimeout bounds a single fetch; zero means the interval.
func WithFetchTimeout(d time.Duration) Option { return func(p *Poller) { p.timeout = d } }

// Poller fetches immediately on selection and then once per interval. Ticks
// are not queued: every tick starts its own fetch, and a response older than
// the last applied one is dropped.
type Poller struct {
	fetcher   Fetcher
	marker    Marker
	locator   Locator
	log       logging.Logger
	interval  time.Duration
	timeout   time.Duration
	newTicker TickerFunc

	mu      sync.Mutex
	state   State
	entity  string
	gen     uint64
	seq     uint64
	applied uint64
	latest  *model.TrackedPosition
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
}

func NewPoller(f Fetcher, m Marker, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   f,
		marker:    m,
		log:       logging.Noop(),
		interval:  DefaultInterval,
		newTicker: newRealTicker,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.timeout <= 0 {
		p.timeout = p.interval
	}
	return p
}

// Select starts polling entityID. An empty id stops polling. Selecting the
// entity already being polled is a no-op.
func (p *Poller) Select(entityID string) {
	if entityID == "" {
		p.Stop()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Polling && p.entity == entityID {
		return
	}
	p.haltLocked()
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	p.gen++
	p.state = Polling
	p.entity = entityID
	p.latest = nil
	p.cancel = cancel
	p.wg = wg

	t := p.newTicker(p.interval)
	wg.Add(1)
	go p.loop(ctx, wg, p.gen, entityID, t)
	p.log.Info(ctx, "tracking started", logging.String("entity_id", entityID), logging.Any("interval", p.interval))
}

// Deselect is Select("").
func (p *Poller) Deselect() { p.Stop() }

// Stop cancels the schedule and any in-flight fetch, then waits for them to
// return. Late results are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	wg := p.wg
	was := p.state
	p.haltLocked()
	if was == Polling {
		p.state = Stopped
	}
	p.mu.Unlock()
	if wg != nil {
		wg.Wait()
	}
	if was == Polling {
		p.log.Info(context.Background(), "tracking stopped")
	}
}

func (p *Poller) haltLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.wg = nil
}

func (p *Poller) loop(ctx context.Context, wg *sync.WaitGroup, gen uint64, id string, t Ticker) {
	defer wg.Done()
	defer t.Stop()
	p.tick(ctx, wg, gen, id)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			p.tick(ctx, wg, gen, id)
		}
	}
}

func (p *Poller) tick(ctx context.Context, wg *sync.WaitGroup, gen uint64, id string) {
	if ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.fetch(ctx, gen, id, seq)
	}()
}

func (p *Poller) fetch(ctx context.Context, gen uint64, id string, seq uint64) {
	if ctx.Err() != nil {
		metrics.PollSamples.WithLabelValues("discarded").Inc()
		return
	}
	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	fctx, _ = logging.EnsureRequestID(fctx)
	pos, err := p.fetcher.Position(fctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case gen != p.gen || p.state != Polling || ctx.Err() != nil:
		metrics.PollSamples.WithLabelValues("discarded").Inc()
	case err != nil:
		metrics.PollSamples.WithLabelValues("failed").Inc()
		p.log.Warn(fctx, "position fetch failed", logging.String("entity_id", id), logging.Err(err))
	case seq < p.applied:
		metrics.PollSamples.WithLabelValues("stale").Inc()
		p.log.Debug(fctx, "stale position dropped", logging.String("entity_id", id), logging.Any("seq", seq), logging.Any("applied", p.applied))
	default:
		p.applied = seq
		if p.locator != nil {
			if zid, ok := p.locator.ZoneAt(pos.Latitude, pos.Longitude); ok {
				pos.ZoneID = &zid
			}
		}
		p.latest = &pos
		metrics.PollSamples.WithLabelValues("applied").Inc()
		if p.marker != nil {
			p.marker.MoveTo(pos)
		}
	}
}

// Latest returns the last applied sample for the selected entity.
func (p *Poller) Latest() (model.TrackedPosition, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return model.TrackedPosition{}, false
	}
	return *p.latest, true
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{State: p.state.String(), Interval: p.interval.String()}
	if p.state == Polling {
		s.EntityID = p.entity
	}
	if p.latest != nil {
		cp := *p.latest
		s.Latest = &cp
	}
	return s
}
