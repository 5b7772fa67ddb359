package registry

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"
	"time"

	"github.com/germanamz/videocapture/pkg/device"
	"github.com/germanamz/videocapture/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrConnectionNotFound is returned for ids that were never opened or are
	// already closed.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrShutdown is returned by Open once Shutdown has run.
	ErrShutdown = errors.New("registry shut down")
)

// Options configures a Registry. Zero values select the defaults.
type Options struct {
	Logger  *zerolog.Logger     // Defaults to a no-op logger.
	Metrics telemetry.Collector // Defaults to telemetry.Noop().
	NewID   func() string       // Defaults to uuid.NewString.
	Now     func() time.Time    // Defaults to time.Now.
}

// Info describes an open connection.
type Info struct {
	ID          string
	DeviceIndex int
	Name        string
	CreatedAt   time.Time
}

// connection owns one device handle. mu serializes every device call on the
// handle; closed is only written with mu held.
type connection struct {
	info Info
	seq  uint64

	mu     sync.Mutex
	handle device.Handle
	closed bool
}

// Registry maps connection ids to open device handles.
type Registry struct {
	opener  device.Opener
	log     zerolog.Logger
	metrics telemetry.Collector
	newID   func() string
	now     func() time.Time

	mu    sync.RWMutex
	conns map[string]*connection
	seq   uint64
	shut  bool
}

// New creates an empty Registry that opens devices through opener.
func New(opener device.Opener, opts Options) *Registry {
	r := &Registry{
		opener:  opener,
		log:     zerolog.Nop(),
		metrics: telemetry.Noop(),
		newID:   uuid.NewString,
		now:     time.Now,
		conns:   make(map[string]*connection),
	}

	if opts.Logger != nil {
		r.log = opts.Logger.With().Str("component", "registry").Logger()
	}
	if opts.Metrics != nil {
		r.metrics = opts.Metrics
	}
	if opts.NewID != nil {
		r.newID = opts.NewID
	}
	if opts.Now != nil {
		r.now = opts.Now
	}

	return r
}

// Open opens the device at index and registers it under a fresh id. An empty
// name becomes "camera_<index>". Adapter errors are returned unchanged and
// leave the registry untouched.
func (r *Registry) Open(index int, name string) (string, error) {
	if index < 0 {
		r.metrics.IncOpen(telemetry.OutcomeError)
		return "", fmt.Errorf("registry: open: negative device index %d: %w", index, device.ErrDeviceUnavailable)
	}

	r.mu.RLock()
	shut := r.shut
	r.mu.RUnlock()
	if shut {
		return "", ErrShutdown
	}

	h, err := r.opener.Open(index)
	if err != nil {
		r.metrics.IncOpen(telemetry.OutcomeError)
		r.log.Warn().Err(err).Int("device_index", index).Msg("open failed")
		return "", err
	}

	if name == "" {
		name = fmt.Sprintf("camera_%d", index)
	}

	r.mu.Lock()
	if r.shut {
		r.mu.Unlock()
		if relErr := h.Release(); relErr != nil {
			r.log.Warn().Err(relErr).Int("device_index", index).Msg("release after late open failed")
		}
		return "", ErrShutdown
	}

	id := r.newID()
	for {
		if _, taken := r.conns[id]; !taken {
			break
		}
		id = r.newID()
	}

	r.seq++
	c := &connection{
		info: Info{
			ID:          id,
			DeviceIndex: index,
			Name:        name,
			CreatedAt:   r.now(),
		},
		seq:    r.seq,
		handle: h,
	}
	r.conns[id] = c
	n := len(r.conns)
	r.mu.Unlock()

	r.metrics.IncOpen(telemetry.OutcomeOK)
	r.metrics.SetOpenConnections(n)
	r.log.Info().
		Str("connection", id).
		Int("device_index", index).
		Str("name", name).
		Msg("connection opened")

	return id, nil
}

// Capture reads one frame from the connection, mirrored when flip is set.
func (r *Registry) Capture(id string, flip bool) (image.Image, error) {
	var img image.Image

	err := r.with(id, func(c *connection) error {
		start := time.Now()
		frame, err := c.handle.ReadFrame(flip)
		r.observeCapture(telemetry.ModeConnection, start, err)
		if err != nil {
			return err
		}
		img = frame
		return nil
	})
	if err != nil {
		return nil, err
	}

	return img, nil
}

// Properties returns the property values reported by the connection's device.
func (r *Registry) Properties(id string) (map[string]float64, error) {
	var props map[string]float64

	err := r.with(id, func(c *connection) error {
		props = c.handle.Properties()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return props, nil
}

// SetProperty changes a property on the connection's device and reports
// whether the device acknowledged it. The error is only ever
// ErrConnectionNotFound; unsupported properties report false.
func (r *Registry) SetProperty(id, name string, value float64) (bool, error) {
	var ok bool

	err := r.with(id, func(c *connection) error {
		ok = c.handle.SetProperty(name, value)
		return nil
	})
	if err != nil {
		return false, err
	}

	r.log.Debug().
		Str("connection", id).
		Str("property", name).
		Float64("value", value).
		Bool("acknowledged", ok).
		Msg("property set")

	return ok, nil
}

// Close removes the connection and releases its handle. It reports false when
// the id is not registered, so closing twice is harmless. A release failure is
// logged and also reported as false; the id is gone either way.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	n := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.metrics.SetOpenConnections(n)

	return r.release(c, "connection closed")
}

// List returns the ids of the open connections in the order they were opened.
func (r *Registry) List() []string {
	conns := r.snapshot()

	ids := make([]string, len(conns))
	for i, c := range conns {
		ids[i] = c.info.ID
	}

	return ids
}

// Connections returns a description of every open connection in the order
// they were opened.
func (r *Registry) Connections() []Info {
	conns := r.snapshot()

	infos := make([]Info, len(conns))
	for i, c := range conns {
		infos[i] = c.info
	}

	return infos
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// QuickCapture opens the device at index, reads one frame and releases the
// device, whether or not the read succeeded. No connection is registered.
func (r *Registry) QuickCapture(index int, flip bool) (image.Image, error) {
	if index < 0 {
		return nil, fmt.Errorf("registry: quick capture: negative device index %d: %w", index, device.ErrDeviceUnavailable)
	}

	h, err := r.opener.Open(index)
	if err != nil {
		r.metrics.IncCapture(telemetry.ModeQuick, telemetry.OutcomeError)
		return nil, err
	}
	defer func() {
		if relErr := h.Release(); relErr != nil {
			r.log.Warn().Err(relErr).Int("device_index", index).Msg("quick capture release failed")
		}
	}()

	start := time.Now()
	img, err := h.ReadFrame(flip)
	r.observeCapture(telemetry.ModeQuick, start, err)
	if err != nil {
		return nil, err
	}

	return img, nil
}

// Shutdown releases every open connection and empties the registry. It waits
// for in-flight operations on each connection before releasing it. Release
// failures are logged and do not stop the sweep. Later calls are no-ops.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	first := !r.shut
	r.shut = true
	conns := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[string]*connection)
	r.mu.Unlock()

	if len(conns) == 0 {
		if first {
			r.metrics.SetOpenConnections(0)
		}
		return
	}

	slices.SortFunc(conns, func(a, b *connection) int { return cmp.Compare(a.seq, b.seq) })
	r.metrics.SetOpenConnections(0)

	failed := 0
	for _, c := range conns {
		if !r.release(c, "connection released at shutdown") {
			failed++
		}
	}

	r.log.Info().
		Int("released", len(conns)-failed).
		Int("failed", failed).
		Msg("registry shut down")
}

// with looks up id and runs fn while holding the connection's lock.
func (r *Registry) with(id string, fn func(c *connection) error) error {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("registry: %q: %w", id, ErrConnectionNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("registry: %q: %w", id, ErrConnectionNotFound)
	}

	return fn(c)
}

// release marks c closed and releases its handle once in-flight operations on
// it have finished. It reports whether the handle released cleanly.
func (r *Registry) release(c *connection, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true

	if err := c.handle.Release(); err != nil {
		r.log.Warn().
			Err(err).
			Str("connection", c.info.ID).
			Int("device_index", c.info.DeviceIndex).
			Msg("release failed")
		return false
	}

	r.log.Info().
		Str("connection", c.info.ID).
		Int("device_index", c.info.DeviceIndex).
		Str("name", c.info.Name).
		Msg(msg)

	return true
}

// snapshot returns the open connections ordered by creation.
func (r *Registry) snapshot() []*connection {
	r.mu.RLock()
	conns := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(conns, func(a, b *connection) int { return cmp.Compare(a.seq, b.seq) })

	return conns
}

func (r *Registry) observeCapture(mode string, start time.Time, err error) {
	r.metrics.ObserveCapture(mode, time.Since(start).Seconds())
	if err != nil {
		r.metrics.IncCapture(mode, telemetry.OutcomeError)
		return
	}
	r.metrics.IncCapture(mode, telemetry.OutcomeOK)
}
