// Package fixture runs the add JSON RPC server for integration tests of
// JSON RPC clients. Start serves it in-process on an ephemeral port; FromEnv
// targets an instance launched elsewhere, such as in a container.
package fixture

import (
	"context"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/hashicorp/go-multierror"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/coinbub/testrpc/backoff"
	"github.com/coinbub/testrpc/metrics/generic"
	"github.com/coinbub/testrpc/pkg/addendpoint"
	"github.com/coinbub/testrpc/pkg/addservice"
	"github.com/coinbub/testrpc/pkg/addtransport"
)

const (
	// EnvHost and EnvPort name the environment variables read by FromEnv.
	EnvHost = "TESTRPC_HOST"
	EnvPort = "TESTRPC_PORT"

	DefaultHost = "localhost"
	DefaultPort = "8080"

	// DefaultUser and DefaultPassword are the credentials clients send
	// unless WithRPCCredentials says otherwise.
	DefaultUser     = "user"
	DefaultPassword = "pass"

	shutdownTimeout = 5 * time.Second
)

// Fixture is a running add server together with a client for it.
type Fixture struct {
	url    string
	client addservice.Service
	added  *generic.Counter

	server *http.Server // nil when the server runs elsewhere
	served chan error

	closeOnce sync.Once
	closeErr  error
}

// Option sets an optional parameter for fixtures.
type Option func(*config)

type config struct {
	addr       string
	user, pass string
	logger     log.Logger
	tracer     stdopentracing.Tracer
}

// WithAddr sets the listen address used by Start. By default the fixture
// listens on an ephemeral port of the loopback interface.
func WithAddr(addr string) Option {
	return func(c *config) { c.addr = addr }
}

// WithRPCCredentials sets the HTTP Basic credentials sent by the fixture's
// client.
func WithRPCCredentials(user, pass string) Option {
	return func(c *config) { c.user, c.pass = user, pass }
}

// WithLogger sets the logger used by the server. By default nothing is
// logged.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithTracer sets the tracer used by the server and client.
func WithTracer(tracer stdopentracing.Tracer) Option {
	return func(c *config) { c.tracer = tracer }
}

func newConfig(options []Option) config {
	cfg := config{
		addr:   "127.0.0.1:0",
		user:   DefaultUser,
		pass:   DefaultPassword,
		logger: log.NewNopLogger(),
		tracer: stdopentracing.NoopTracer{},
	}
	for _, option := range options {
		option(&cfg)
	}
	return cfg
}

// Start runs the full server stack in-process. The returned Fixture must be
// closed.
func Start(ctx context.Context, options ...Option) (*Fixture, error) {
	cfg := newConfig(options)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", cfg.addr)
	}

	var (
		added     = generic.NewCounter("numbers_added")
		duration  = generic.NewHistogram("request_duration_seconds", 50)
		service   = addservice.New(cfg.logger, added)
		endpoints = addendpoint.New(service, cfg.logger, duration, cfg.tracer)
		handler   = addtransport.NewJSONRPCHandler(endpoints, cfg.logger, cfg.tracer)
	)

	f := &Fixture{
		url:   "http://" + ln.Addr().String(),
		added: added,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		served: make(chan error, 1),
	}
	go func() {
		err := f.server.Serve(ln)
		if err == http.ErrServerClosed {
			err = nil
		}
		f.served <- err
	}()

	f.client, err = newClient(f.url, cfg)
	if err != nil {
		return nil, multierror.Append(err, f.Close())
	}
	return f, nil
}

// FromEnv returns a Fixture for a server launched outside the test process,
// at the host and port given by TESTRPC_HOST and TESTRPC_PORT. It waits until
// the server answers, or the context is done. Added reports the successful
// additions made through the fixture's client.
func FromEnv(ctx context.Context, options ...Option) (*Fixture, error) {
	cfg := newConfig(options)

	host, port := os.Getenv(EnvHost), os.Getenv(EnvPort)
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	url := "http://" + net.JoinHostPort(host, port)

	client, err := newClient(url, cfg)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, client); err != nil {
		return nil, errors.Wrapf(err, "waiting for %s", url)
	}

	added := generic.NewCounter("numbers_added")
	return &Fixture{
		url:    url,
		client: addservice.InstrumentingMiddleware(added)(client),
		added:  added,
	}, nil
}

func newClient(url string, cfg config) (addservice.Service, error) {
	return addtransport.NewJSONRPCClient(
		url,
		addtransport.WithBasicAuth(cfg.user, cfg.pass),
		addtransport.WithTracer(cfg.tracer),
		addtransport.WithLogger(cfg.logger),
	)
}

func waitReady(ctx context.Context, client addservice.Service) error {
	b := backoff.New()
	for {
		_, err := client.Add(ctx, addservice.Int(0), addservice.Int(0))
		if err == nil {
			return nil
		}
		if werr := b.Wait(ctx); werr != nil {
			return multierror.Append(werr, err)
		}
	}
}

// URL returns the address clients should call.
func (f *Fixture) URL() string {
	return f.url
}

// Client returns a client of the fixture.
func (f *Fixture) Client() addservice.Service {
	return f.client
}

// Added returns how many additions succeeded.
func (f *Fixture) Added() int {
	return int(f.added.Value())
}

// Close gracefully stops a server started by Start. It is safe to call more
// than once.
func (f *Fixture) Close() error {
	f.closeOnce.Do(func() {
		if f.server == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var result *multierror.Error
		if err := f.server.Shutdown(ctx); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "shutting down"))
		}
		if err := <-f.served; err != nil {
			result = multierror.Append(result, errors.Wrap(err, "serving"))
		}
		f.closeErr = result.ErrorOrNil()
	})
	return f.closeErr
}
