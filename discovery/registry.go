package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chopfinder/feed"
	"chopfinder/filters"
	"chopfinder/models"
	"chopfinder/restaurants"
	"chopfinder/search"
	"chopfinder/storage"
)

var ErrSessionNotFound = errors.New("session not found")

var liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chopfinder_sessions_live",
	Help: "The number of live discovery sessions",
})

type Options struct {
	Source  restaurants.Source
	Storage storage.KV
	Feed    feed.Options
	// Debounce and Scheduler configure each session's search controller.
	Debounce  time.Duration
	Scheduler search.Scheduler
	TTL       time.Duration
	Now       func() time.Time
	Logger    *log.Logger
}

// Registry holds the live sessions.
type Registry struct {
	opts   Options
	logger *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	devices  map[string]*device
}

// device shares one recents list between the sessions of a device.
type device struct {
	recents *search.Recents
	refs    int
}

func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Feed.Logger == nil {
		opts.Feed.Logger = opts.Logger
	}
	return &Registry{
		opts:     opts,
		logger:   opts.Logger.WithPrefix("sessions"),
		sessions: make(map[string]*Session),
		devices:  make(map[string]*device),
	}
}

// Create starts a session and loads its first page. Sessions of one device share its
// recent searches; without a device id they live only as long as the session's namespace.
func (r *Registry) Create(ctx context.Context, deviceID string, loc *models.Coordinate) (*Session, error) {
	id := uuid.NewString()
	if deviceID == "" {
		deviceID = id
	}
	sctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	dev, ok := r.devices[deviceID]
	if !ok {
		kv := storage.Namespace(r.opts.Storage, deviceID)
		dev = &device{recents: search.NewRecents(kv, r.opts.Logger)}
		r.devices[deviceID] = dev
	}
	dev.refs++
	r.mu.Unlock()

	controller := search.NewController(r.opts.Source, dev.recents, search.Options{
		Debounce:  r.opts.Debounce,
		Scheduler: r.opts.Scheduler,
		Logger:    r.opts.Logger,
		Context:   sctx,
	})

	s := &Session{
		ID:       id,
		DeviceID: deviceID,
		Filters:  filters.NewStore(),
		Search:   controller,
		Feed:     feed.New(r.opts.Source, r.opts.Feed),
		logger:   r.logger,
		cancel:   cancel,
		location: loc,
		lastUsed: r.opts.Now(),
	}
	controller.OnCommit(s.onCommit)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	liveSessions.Inc()
	r.logger.Info("session created", "session", id, "device", deviceID)

	return s, s.Sync(ctx)
}

// Get returns a session and marks it used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.opts.Now())
	return s, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.release(s.DeviceID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	liveSessions.Dec()
	return nil
}

// Evict closes sessions unused for longer than the TTL and returns how many it closed.
func (r *Registry) Evict() int {
	cutoff := r.opts.Now().Add(-r.opts.TTL)
	var idle []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
			r.release(s.DeviceID)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
		liveSessions.Dec()
	}
	if len(idle) > 0 {
		r.logger.Info("evicted idle sessions", "count", len(idle))
	}
	return len(idle)
}

// release drops a session's hold on its device. Callers hold r.mu.
func (r *Registry) release(deviceID string) {
	dev, ok := r.devices[deviceID]
	if !ok {
		return
	}
	if dev.refs--; dev.refs <= 0 {
		delete(r.devices, deviceID)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.devices = make(map[string]*device)
	r.mu.Unlock()
	for _, s := range all {
		s.close()
		liveSessions.Dec()
	}
}
