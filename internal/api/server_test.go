package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/solarpower/internal/assets"
	"github.com/nerrad567/solarpower/internal/device"
	"github.com/nerrad567/solarpower/internal/infrastructure/config"
	"github.com/nerrad567/solarpower/internal/infrastructure/logging"
	"github.com/nerrad567/solarpower/internal/thing"
)

// fakeRecorder counts what the server reports.
type fakeRecorder struct {
	mu       sync.Mutex
	requests map[string]int
	errors   map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{requests: map[string]int{}, errors: map[string]int{}}
}

func (f *fakeRecorder) ObserveRequest(method string, status int) {
	f.mu.Lock()
	f.requests[fmt.Sprintf("%s %d", method, status)]++
	f.mu.Unlock()
}

func (f *fakeRecorder) DeviceError(property, op string) {
	f.mu.Lock()
	f.errors[property+" "+op]++
	f.mu.Unlock()
}

type testEnv struct {
	srv       *Server
	handler   http.Handler
	transport *device.MemoryTransport
	device    *device.Device
	recorder  *fakeRecorder
	thingCfg  thing.Config
}

type testOption func(*config.APIConfig, *fstest.MapFS)

func withMaxBody(n int64) testOption {
	return func(c *config.APIConfig, _ *fstest.MapFS) { c.MaxBodyBytes = n }
}

func withoutTemplate() testOption {
	return func(_ *config.APIConfig, fsys *fstest.MapFS) { delete(*fsys, assets.TemplateName) }
}

// testServer creates a Server backed by a simulated device.
func testServer(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	cfg := config.APIConfig{
		Host:           "127.0.0.1",
		Port:           0,
		Timeouts:       config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		MaxBodyBytes:   1_000_000,
		ObserveTimeout: 1,
	}
	fsys := fstest.MapFS{
		assets.TemplateName:    {Data: []byte(`{"id":"urn:uuid:{{{uuid}}}","base":"{{{base}}}"}`)},
		assets.DescriptionName: {Data: []byte("# Solar Power Monitor\n")},
	}
	for _, opt := range opts {
		opt(&cfg, &fsys)
	}

	tr := device.NewMemoryTransport()
	dev, err := device.New(0, tr, device.DefaultProperties())
	require.NoError(t, err)

	thingCfg := thing.NewConfig(thing.Params{Protocol: "http", Hostname: "solar.local", Port: 9195})
	rec := newFakeRecorder()

	srv, err := New(Deps{
		Config:      cfg,
		Description: "Solar Power Monitor",
		Logger:      logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test"),
		Device:      dev,
		Generator:   thing.NewGenerator(fsys, assets.TemplateName, thingCfg),
		Assets:      fsys,
		Recorder:    rec,
		Version:     "test",
	})
	require.NoError(t, err)

	return &testEnv{
		srv:       srv,
		handler:   srv.Handler(),
		transport: tr,
		device:    dev,
		recorder:  rec,
		thingCfg:  thingCfg,
	}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// ─── Construction ───────────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

// ─── Documents ──────────────────────────────────────────────────────

func TestRoot(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Solar Power Monitor\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDescription(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodGet, "/DESC/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Equal(t, "# Solar Power Monitor\n", rec.Body.String())
}

func TestThingDescription(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var td map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &td))
	assert.Equal(t, "urn:uuid:"+env.thingCfg.UUID(), td["id"])
	assert.Equal(t, "http://solar.local:9195/api", td["base"])
}

func TestThingDescription_TemplateUnavailable(t *testing.T) {
	env := testServer(t, withoutTemplate())

	rec := env.do(http.MethodGet, "/api", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ─── Routing ────────────────────────────────────────────────────────

func TestRouting_UnknownPath(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodGet, "/api/bogus", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/bogus not found\n", rec.Body.String())
}

func TestRouting_MethodNotSupported(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodDelete, "/api/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method DELETE not supported on /api/status\n", rec.Body.String())

	rec = env.do(http.MethodPost, "/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouting_Normalisation(t *testing.T) {
	env := testServer(t)
	env.transport.Store(0, "c0", json.Number("17.2"))

	for _, target := range []string{"/api/panel", "/API/Panel", "/api/panel/", "/api/PANEL/?x=1", "/api/c0"} {
		rec := env.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "17.2\n", rec.Body.String(), target)
	}
}

func TestRouting_CodeAndAliasAgree(t *testing.T) {
	env := testServer(t)
	pairs := map[string]string{
		"c0": "panel", "c1": "charge", "c2": "output", "e": "environment",
		"s": "status", "d": "dispmode", "y": "period",
	}

	for code, alias := range pairs {
		env.transport.Store(0, code, code+"-value")

		byCode := env.do(http.MethodGet, "/api/"+code, "")
		byAlias := env.do(http.MethodGet, "/api/"+alias, "")

		assert.Equal(t, http.StatusOK, byCode.Code, code)
		assert.Equal(t, byCode.Body.String(), byAlias.Body.String(), alias)
	}
}

// ─── Properties ─────────────────────────────────────────────────────

func TestProperty_PutThenGetRoundTrips(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodPut, "/api/e", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Device[0].e = 42", rec.Body.String())

	rec = env.do(http.MethodGet, "/api/e", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42\n", rec.Body.String())
}

func TestProperty_PostByAlias(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodPost, "/api/dispmode", `"night"`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Device[0].d = night", rec.Body.String())
}

func TestProperty_InvalidValue(t *testing.T) {
	env := testServer(t)

	rec := env.do(http.MethodPut, "/api/period", `{"seconds": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, writes := env.transport.Calls()
	assert.Zero(t, writes)
}

func TestProperty_TransportFailure(t *testing.T) {
	env := testServer(t)
	env.transport.Fail("c0", errors.New("serial timeout"))

	rec := env.do(http.MethodGet, "/api/panel", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error - could not read c0", rec.Body.String())

	rec = env.do(http.MethodPut, "/api/panel", "1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error - could not set c0", rec.Body.String())

	env.recorder.mu.Lock()
	defer env.recorder.mu.Unlock()
	assert.Equal(t, 1, env.recorder.errors["c0 read"])
	assert.Equal(t, 1, env.recorder.errors["c0 set"])
	assert.Equal(t, 2, env.recorder.requests["GET 500"]+env.recorder.requests["PUT 500"])
}

// ─── Body ingestion ─────────────────────────────────────────────────

func TestBody_CapSizedAccepted(t *testing.T) {
	env := testServer(t, withMaxBody(16))
	body := "7" + strings.Repeat(" ", 15)

	rec := env.do(http.MethodPut, "/api/y", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Device[0].y = 7", rec.Body.String())
}

func TestBody_OverCapRejected(t *testing.T) {
	env := testServer(t, withMaxBody(16))
	body := "7" + strings.Repeat(" ", 16)

	rec := env.do(http.MethodPut, "/api/y", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))

	_, writes := env.transport.Calls()
	assert.Zero(t, writes, "oversized bodies must not reach the device")
}

func TestBody_Malformed(t *testing.T) {
	env := testServer(t)

	for _, body := range []string{"", "{", "1 2", "not json"} {
		rec := env.do(http.MethodPut, "/api/s", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}

	_, writes := env.transport.Calls()
	assert.Zero(t, writes)
}

// ─── Observe ────────────────────────────────────────────────────────

func TestObserve_ResolvedByChange(t *testing.T) {
	env := testServer(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	type reply struct {
		status int
		body   string
	}
	done := make(chan reply, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/api/charge/observe")
		if err != nil {
			done <- reply{}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		done <- reply{resp.StatusCode, string(body)}
	}()

	// Keep changing the value until the long poll returns.
	var got reply
	n := 0
	require.Eventually(t, func() bool {
		n++
		_ = env.device.Set(context.Background(), "c1", json.Number(fmt.Sprint(n)))
		select {
		case got = <-done:
			return true
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, http.StatusOK, got.status)
	assert.NotEmpty(t, strings.TrimSpace(got.body))
}

func TestObserve_TimeoutReturnsNoContent(t *testing.T) {
	env := testServer(t)

	start := time.Now()
	rec := env.do(http.MethodGet, "/api/status/observe", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)

	// The property stays observable after an abandoned long poll.
	obs, err := env.device.Observe("s")
	require.NoError(t, err)
	require.NoError(t, env.device.Set(context.Background(), "s", "ok"))
	v, err := obs.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

// ─── Middleware ─────────────────────────────────────────────────────

func TestRecoveryMiddleware(t *testing.T) {
	env := testServer(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "solarpower/test", rec.Header().Get("Server"))
}

func TestRoutePath(t *testing.T) {
	tests := map[string]string{
		"/":            "/",
		"":             "/",
		"/API/":        "/api",
		"/api/Panel/":  "/api/panel",
		"/api/c0":      "/api/c0",
		"/api/panel//": "/api/panel/",
	}
	for in, want := range tests {
		assert.Equal(t, want, routePath(in), in)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestServer_StartServeClose(t *testing.T) {
	env := testServer(t, withMaxBody(16))
	ctx := context.Background()

	assert.Error(t, env.srv.HealthCheck(ctx), "not started yet")
	require.NoError(t, env.srv.Start(ctx))
	defer env.srv.Close() //nolint:errcheck // Test cleanup

	require.NoError(t, env.srv.HealthCheck(ctx))
	base := "http://" + env.srv.Addr().String()

	resp, err := http.Get(base + "/api/panel")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0\n", string(body))

	req, err := http.NewRequest(http.MethodPut, base+"/api/panel", strings.NewReader(strings.Repeat("1", 17)))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.True(t, resp.Close, "connection must be closed after an oversized body")

	require.NoError(t, env.srv.Close())
}

// putOverConn writes one PUT /api/y with a body of exactly size bytes on conn.
func putOverConn(conn net.Conn, size int) error {
	head := fmt.Sprintf("PUT /api/y HTTP/1.1\r\nHost: solar.local\r\nContent-Length: %d\r\n\r\n", size)
	body := "7" + strings.Repeat(" ", size-1)
	_, err := io.WriteString(conn, head+body)
	return err
}

func TestServer_DefaultBodyCapOverTCP(t *testing.T) {
	env := testServer(t, withMaxBody(0)) // zero selects the default cap
	ctx := context.Background()

	require.NoError(t, env.srv.Start(ctx))
	defer env.srv.Close() //nolint:errcheck // Test cleanup

	conn, err := net.Dial("tcp", env.srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	br := bufio.NewReader(conn)

	// Exactly the cap: accepted and the connection stays usable.
	require.NoError(t, putOverConn(conn, 1_000_000))
	resp, err := http.ReadResponse(br, nil)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Device[0].y = 7", string(body))
	assert.False(t, resp.Close)

	// One byte over on the same connection: rejected and closed.
	go putOverConn(conn, 1_000_001) //nolint:errcheck // the server may close first
	resp, err = http.ReadResponse(br, nil)
	require.NoError(t, err)
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.True(t, resp.Close)

	_, err = br.ReadByte()
	require.Error(t, err)
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection was left open: %v", err)

	_, writes := env.transport.Calls()
	assert.Equal(t, 1, writes)
}
