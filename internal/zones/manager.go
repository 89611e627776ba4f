// Package zones runs the zone record lifecycle against the backend and keeps
// the local collection equal to the last confirmed server response.
package zones

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/geo"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/metrics"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

// API is the subset of the backend client the manager needs.
type API interface {
	ListZones(ctx context.Context) ([]model.Zone, error)
	CreateZone(ctx context.Context, in model.ZoneInput) (model.Zone, error)
	UpdateZone(ctx context.Context, key string, patch model.ZonePatch) (model.Zone, error)
	DeleteZone(ctx context.Context, id int64) error
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier shows transient toast messages.
type Notifier interface {
	Toast(level Level, msg string)
}

// Confirmer asks the operator to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

type Option func(*Manager)

func WithLogger(l logging.Logger) Option { return func(m *Manager) { m.log = l } }
func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notify = n } }
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithListener is called with a fresh snapshot after every applied list.
func WithListener(fn func(Snapshot)) Option { return func(m *Manager) { m.listener = fn } }

// Manager orchestrates list/create/update/delete. The collection is never
// patched locally; every successful mutation is followed by a list.
type Manager struct {
	api      API
	state    *State
	guard    Guard
	notify   Notifier
	log      logging.Logger
	now      func() time.Time
	listener func(Snapshot)
	listSeq  atomic.Uint64

	idMu   sync.Mutex
	lastID int64
}

func NewManager(api API, state *State, opts ...Option) *Manager {
	if state == nil {
		state = NewState()
	}
	m := &Manager{api: api, state: state, log: logging.Noop(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() *State { return m.state }

// Phase reports the mutation guard state.
func (m *Manager) Phase() Phase { return m.guard.Phase() }

// List replaces the collection with the server's. A failure keeps the previous
// collection and raises the banner.
func (m *Manager) List(ctx context.Context) error {
	seq := m.listSeq.Add(1)
	zones, err := m.api.ListZones(ctx)
	if err != nil {
		if m.state.fail(seq, apperr.UserMessage(err)) {
			m.changed()
		}
		m.log.Warn(ctx, "list zones failed", logging.Err(err))
		return err
	}
	if m.state.replace(seq, zones, m.now()) {
		metrics.ZonesLoaded.Set(float64(len(zones)))
		m.changed()
	}
	m.log.Debug(ctx, "zones listed", logging.Int("count", len(zones)))
	return nil
}

// Create validates the draft, submits it and, on success, resets the draft and
// refreshes. On failure the draft is left as it was.
func (m *Manager) Create(ctx context.Context, d *Draft) (model.Zone, error) {
	if err := m.guard.Begin(); err != nil {
		return model.Zone{}, err
	}
	defer m.guard.Settle()

	in, err := m.input(d)
	if err != nil {
		metrics.ZoneMutations.WithLabelValues("create", "invalid").Inc()
		return model.Zone{}, err
	}
	z, err := m.api.CreateZone(ctx, in)
	if err != nil {
		metrics.ZoneMutations.WithLabelValues("create", "failed").Inc()
		m.log.Warn(ctx, "create zone failed", logging.String("readable_id", in.ReadableID), logging.Err(err))
		m.toast(LevelError, apperr.UserMessage(err))
		return model.Zone{}, err
	}
	metrics.ZoneMutations.WithLabelValues("create", "ok").Inc()
	m.log.Info(ctx, "zone created", logging.String("readable_id", in.ReadableID), logging.String("name", in.Name))
	d.Reset()
	m.toast(LevelSuccess, fmt.Sprintf("Zone %q created.", in.Name))
	_ = m.List(ctx)
	return z, nil
}

func (m *Manager) input(d *Draft) (model.ZoneInput, error) {
	if d == nil {
		return model.ZoneInput{}, apperr.Invalid("draft", "Nothing to submit.")
	}
	v := d.View()
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return model.ZoneInput{}, apperr.Invalid("name", "Zone name is required.")
	}
	if d.path == nil {
		return model.ZoneInput{}, apperr.Invalid("polygon", "Draw a polygon before saving.")
	}
	if err := d.path.Validate(); err != nil {
		return model.ZoneInput{}, err
	}
	wkt, err := geo.Serialize(v.Path)
	if err != nil {
		return model.ZoneInput{}, &apperr.ValidationError{Field: "polygon", Msg: "The drawn polygon is not valid. Redraw it and try again.", Err: err}
	}
	if err := geo.ValidateWKT(wkt); err != nil {
		return model.ZoneInput{}, &apperr.ValidationError{Field: "polygon", Msg: "The polygon needs at least 3 distinct points. Redraw it and try again.", Err: err}
	}
	return model.ZoneInput{ReadableID: m.readableID(), Name: name, PolygonWKT: wkt, Active: v.Active}, nil
}

// readableID is a millisecond timestamp, bumped when two calls share a tick.
func (m *Manager) readableID() string {
	m.idMu.Lock()
	defer m.idMu.Unlock()
	id := m.now().UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return strconv.FormatInt(id, 10)
}

// Update applies patch to the zone identified by key (readable or numeric id).
// On failure dialog stays open with the error.
func (m *Manager) Update(ctx context.Context, key string, patch model.ZonePatch, dialog *EditDialog) (model.Zone, error) {
	if err := m.guard.Begin(); err != nil {
		return model.Zone{}, err
	}
	defer m.guard.Settle()

	fail := func(err error) (model.Zone, error) {
		if dialog != nil {
			dialog.fail(apperr.UserMessage(err))
		}
		return model.Zone{}, err
	}
	if err := validatePatch(key, patch); err != nil {
		metrics.ZoneMutations.WithLabelValues("update", "invalid").Inc()
		return fail(err)
	}
	z, err := m.api.UpdateZone(ctx, key, patch)
	if err != nil {
		metrics.ZoneMutations.WithLabelValues("update", "failed").Inc()
		m.log.Warn(ctx, "update zone failed", logging.String("key", key), logging.Err(err))
		return fail(err)
	}
	metrics.ZoneMutations.WithLabelValues("update", "ok").Inc()
	m.log.Info(ctx, "zone updated", logging.String("key", key))
	if dialog != nil {
		dialog.Close()
	}
	m.toast(LevelSuccess, "Zone updated.")
	_ = m.List(ctx)
	return z, nil
}

func validatePatch(key string, p model.ZonePatch) error {
	if strings.TrimSpace(key) == "" {
		return apperr.Invalid("id", "A zone id is required.")
	}
	if p.Empty() {
		return apperr.Invalid("patch", "Nothing to update.")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Invalid("name", "Zone name is required.")
	}
	if p.PolygonWKT != nil {
		if err := geo.ValidateWKT(*p.PolygonWKT); err != nil {
			return &apperr.ValidationError{Field: "polygonWkt", Msg: "The polygon is not valid WKT.", Err: err}
		}
	}
	return nil
}

// Delete removes zone id after the operator confirms. Without confirmation no
// request is made and apperr.ErrNotConfirmed is returned.
func (m *Manager) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	prompt := fmt.Sprintf("Delete zone %d? This cannot be undone.", id)
	if z, ok := m.state.Find(strconv.FormatInt(id, 10)); ok {
		prompt = fmt.Sprintf("Delete zone %q? This cannot be undone.", z.Name)
	}
	if confirm == nil || !confirm.Confirm(ctx, prompt) {
		metrics.ZoneMutations.WithLabelValues("delete", "cancelled").Inc()
		return apperr.ErrNotConfirmed
	}
	if err := m.guard.Begin(); err != nil {
		return err
	}
	defer m.guard.Settle()

	if err := m.api.DeleteZone(ctx, id); err != nil {
		metrics.ZoneMutations.WithLabelValues("delete", "failed").Inc()
		m.log.Warn(ctx, "delete zone failed", logging.Int64("id", id), logging.Err(err))
		m.toast(LevelError, apperr.UserMessage(err))
		return err
	}
	metrics.ZoneMutations.WithLabelValues("delete", "ok").Inc()
	m.log.Info(ctx, "zone deleted", logging.Int64("id", id))
	m.toast(LevelSuccess, "Zone deleted.")
	_ = m.List(ctx)
	return nil
}

func (m *Manager) toast(level Level, msg string) {
	if m.notify != nil {
		m.notify.Toast(level, msg)
	}
}

func (m *Manager) changed() {
	if m.listener != nil {
		m.listener(m.state.Snapshot())
	}
}

// IsValidation reports whether err was raised before any request was sent.
func IsValidation(err error) bool {
	var ve *apperr.ValidationError
	return errors.As(err, &ve)
}
