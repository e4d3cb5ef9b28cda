package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrRegistrationFailed wraps every failed registration.
var ErrRegistrationFailed = errors.New("directory: registration failed")

// Logger defines the logging interface used by the Registrar.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DocumentSource produces a fresh document for each registration cycle.
type DocumentSource func() ([]byte, error)

// Options configures a Registrar.
type Options struct {
	// Directories are the directory endpoints. Empty entries must already
	// have been removed.
	Directories []string

	// TTL is the requested lease, in seconds.
	TTL int

	// Timeout bounds each registration request. Zero means no limit.
	Timeout time.Duration

	// Interval overrides RenewalInterval(TTL) when non-zero.
	Interval time.Duration

	// Source renders the document registered on each cycle.
	Source DocumentSource
}

// Registrar keeps the Thing Description registered with every directory.
//
// All public methods are thread-safe.
type Registrar struct {
	client   *resty.Client
	dirs     []string
	ttl      int
	interval time.Duration
	source   DocumentSource
	logger   Logger

	mu       sync.Mutex
	records  map[string]Record
	onResult []func(Result)
}

// New creates a Registrar. Requests are never retried; the next renewal
// cycle is the retry.
func New(opts Options) *Registrar {
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/ld+json").
		SetHeader("Accept", "application/json")

	interval := opts.Interval
	if interval <= 0 {
		interval = RenewalInterval(time.Duration(opts.TTL) * time.Second)
	}

	return &Registrar{
		client:   client,
		dirs:     append([]string(nil), opts.Directories...),
		ttl:      opts.TTL,
		interval: interval,
		source:   opts.Source,
		logger:   noopLogger{},
		records:  make(map[string]Record, len(opts.Directories)),
	}
}

// SetLogger sets the logger for the registrar.
func (r *Registrar) SetLogger(logger Logger) {
	r.logger = logger
}

// OnResult registers fn to be called with every registration outcome.
func (r *Registrar) OnResult(fn func(Result)) {
	r.mu.Lock()
	r.onResult = append(r.onResult, fn)
	r.mu.Unlock()
}

// Interval returns the renewal period used by Run.
func (r *Registrar) Interval() time.Duration {
	return r.interval
}

// Records returns a snapshot of the per-directory registration state.
func (r *Registrar) Records() map[string]Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Record, len(r.records))
	for k, v := range r.records {
		out[k] = v
	}
	return out
}

// Run registers immediately and then once per interval until ctx is done.
// Each cycle renders a new document and runs in its own goroutine, so a
// slow directory never delays the next cycle. Run returns at once when no
// directory is configured.
func (r *Registrar) Run(ctx context.Context) error {
	if len(r.dirs) == 0 {
		r.logger.Debug("no thing directories configured")
		return nil
	}

	r.logger.Info("directory registration started",
		"directories", len(r.dirs),
		"ttl", r.ttl,
		"interval", r.Interval().String(),
	)

	var wg sync.WaitGroup
	cycle := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.cycle(ctx)
		}()
	}

	cycle()

	ticker := time.NewTicker(r.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-ticker.C:
			cycle()
		}
	}
}

func (r *Registrar) cycle(ctx context.Context) {
	doc, err := r.source()
	if err != nil {
		r.logger.Error("generating thing description for registration", "error", err)
		return
	}
	r.RegisterAll(ctx, doc)
	r.logStale()
}

// logStale reports directories whose last renewal failed while an earlier
// registration identifier is still on record.
func (r *Registrar) logStale() {
	for dir, rec := range r.Records() {
		if rec.ID == "" || rec.LastError == "" {
			continue
		}
		r.logger.Warn("directory holds a stale registration",
			"directory", dir,
			"id", rec.ID,
			"last_success", rec.LastSuccess,
			"last_error", rec.LastError,
		)
	}
}

// RegisterAll posts doc to every directory concurrently and waits for all
// of them. Results are in directory order.
func (r *Registrar) RegisterAll(ctx context.Context, doc []byte) []Result {
	results := make([]Result, len(r.dirs))

	var wg sync.WaitGroup
	for i, dir := range r.dirs {
		wg.Add(1)
		go func(i int, dir string) {
			defer wg.Done()
			results[i] = r.register(ctx, dir, doc)
		}(i, dir)
	}
	wg.Wait()

	return results
}

func (r *Registrar) register(ctx context.Context, dir string, doc []byte) Result {
	started := time.Now()
	id, err := r.post(ctx, dir, doc)
	res := Result{Directory: dir, ID: id, Err: err}

	r.mu.Lock()
	rec := r.records[dir]
	rec.LastAttempt = started
	if err != nil {
		rec.LastError = err.Error()
	} else {
		rec.ID = id
		rec.LastSuccess = started
		rec.LastError = ""
	}
	r.records[dir] = rec
	hooks := r.onResult
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("thing description registration failed", "directory", dir, "error", err)
	} else {
		r.logger.Info("thing description registered", "directory", dir, "id", id)
	}

	for _, fn := range hooks {
		fn(res)
	}
	return res
}

func (r *Registrar) post(ctx context.Context, dir string, doc []byte) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("lt", strconv.Itoa(r.ttl)).
		SetBody(doc).
		Post(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: %s returned %s", ErrRegistrationFailed, dir, resp.Status())
	}

	id, err := resourceID(resp.Body(), doc)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRegistrationFailed, dir, err)
	}
	return id, nil
}

type identified struct {
	ID string `json:"id"`
}

// resourceID extracts the stored resource identifier from a directory
// reply. An empty reply, or one without an id, falls back to the id of the
// submitted document.
func resourceID(body, doc []byte) (string, error) {
	if body = bytes.TrimSpace(body); len(body) > 0 {
		var reply identified
		if err := json.Unmarshal(body, &reply); err != nil {
			return "", fmt.Errorf("unreadable reply: %w", err)
		}
		if reply.ID != "" {
			return reply.ID, nil
		}
	}

	var own identified
	if err := json.Unmarshal(doc, &own); err != nil {
		return "", nil
	}
	return own.ID, nil
}
