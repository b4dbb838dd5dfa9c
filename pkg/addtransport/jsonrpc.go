// Package addtransport exposes the add endpoints over JSON RPC 2.0 on HTTP,
// and provides the matching client.
package addtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	stdopentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/coinbub/testrpc/endpoint"
	"github.com/coinbub/testrpc/pkg/addendpoint"
	"github.com/coinbub/testrpc/pkg/addservice"
	"github.com/coinbub/testrpc/tracing/opentracing"
	"github.com/coinbub/testrpc/transport"
	httptransport "github.com/coinbub/testrpc/transport/http"
	"github.com/coinbub/testrpc/transport/http/jsonrpc"
)

// NewJSONRPCHandler returns an http.Handler serving the endpoints as JSON RPC
// methods at the root path.
func NewJSONRPCHandler(endpoints addendpoint.Set, logger log.Logger, otTracer stdopentracing.Tracer) http.Handler {
	server := jsonrpc.NewServer(
		makeEndpointCodecMap(endpoints),
		jsonrpc.ServerErrorHandler(errorHandler(logger)),
		jsonrpc.ServerBefore(
			httptransport.PopulateRequestContext,
			opentracing.HTTPToContext(otTracer, "jsonrpc", logger),
		),
		jsonrpc.ServerFinalizer(serverFinalizer(logger)),
	)

	r := mux.NewRouter()
	r.Handle("/", server)
	return r
}

// errorHandler reports internal failures at error level. Everything else is
// the caller's fault and only logged for debugging.
func errorHandler(logger log.Logger) transport.ErrorHandler {
	return transport.ErrorHandlerFunc(func(ctx context.Context, err error) {
		var ec jsonrpc.ErrorCoder
		if errors.As(err, &ec) && ec.ErrorCode() != jsonrpc.InternalError {
			level.Debug(logger).Log("err", err)
			return
		}
		level.Error(logger).Log("err", err)
	})
}

func serverFinalizer(logger log.Logger) httptransport.ServerFinalizerFunc {
	finishSpan := opentracing.HTTPFinalizer()
	return func(ctx context.Context, code int, r *http.Request) {
		level.Debug(logger).Log(
			"transport", "JSONRPC",
			"http_method", r.Method,
			"remote_addr", ctx.Value(httptransport.ContextKeyRequestRemoteAddr),
			"code", code,
			"size", ctx.Value(httptransport.ContextKeyResponseSize),
		)
		finishSpan(ctx, code, r)
	}
}

// Option configures the client returned by NewJSONRPCClient.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient jsonrpc.HTTPClient
	before     []httptransport.RequestFunc
	ids        jsonrpc.RequestIDGenerator
	tracer     stdopentracing.Tracer
	logger     log.Logger
}

// WithBasicAuth sends HTTP Basic credentials with every call. The fixture
// itself does not check them.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.before = append(c.before, httptransport.SetBasicAuth(username, password))
	}
}

// WithHTTPClient sets the client used to make calls. By default,
// http.DefaultClient is used.
func WithHTTPClient(client jsonrpc.HTTPClient) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithUUIDRequestIDs makes the client send random UUID strings as request
// ids, in place of auto-incrementing integers.
func WithUUIDRequestIDs() Option {
	return func(c *clientConfig) { c.ids = jsonrpc.UUIDRequestID{} }
}

// WithTracer traces calls with the given tracer. By default, no spans are
// recorded.
func WithTracer(tracer stdopentracing.Tracer) Option {
	return func(c *clientConfig) { c.tracer = tracer }
}

// WithLogger sets the logger used for tracing propagation errors.
func WithLogger(logger log.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// NewJSONRPCClient returns an addservice backed by a JSON RPC over HTTP server
// living at the remote instance. The instance may be a URL or of the form
// "host:port". We bake-in certain middlewares, implementing the client
// library pattern.
func NewJSONRPCClient(instance string, options ...Option) (addservice.Service, error) {
	if !strings.HasPrefix(instance, "http://") && !strings.HasPrefix(instance, "https://") {
		instance = "http://" + instance
	}
	tgt, err := url.Parse(instance)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing instance %q", instance)
	}

	cfg := clientConfig{
		httpClient: http.DefaultClient,
		ids:        jsonrpc.NewAutoIncrementID(1),
		tracer:     stdopentracing.NoopTracer{},
		logger:     log.NewNopLogger(),
	}
	for _, option := range options {
		option(&cfg)
	}

	var addEndpoint endpoint.Endpoint
	{
		before := append([]httptransport.RequestFunc{opentracing.ContextToHTTP(cfg.tracer, cfg.logger)}, cfg.before...)
		addEndpoint = jsonrpc.NewClient(
			tgt,
			"add",
			jsonrpc.ClientRequestEncoder(encodeAddRequest),
			jsonrpc.ClientResponseDecoder(decodeAddResponse),
			jsonrpc.ClientBefore(before...),
			jsonrpc.ClientRequestIDGenerator(cfg.ids),
			jsonrpc.SetClient(cfg.httpClient),
		).Endpoint()
		addEndpoint = opentracing.TraceClient(cfg.tracer, "Add")(addEndpoint)
	}

	// Returning the endpoint.Set as a service.Service relies on the
	// endpoint.Set implementing the Service methods. That's just a simple bit
	// of glue code.
	return addendpoint.Set{
		AddEndpoint: addEndpoint,
	}, nil
}

// makeEndpointCodecMap returns a codec map configured for the addsvc.
func makeEndpointCodecMap(endpoints addendpoint.Set) jsonrpc.EndpointCodecMap {
	return jsonrpc.EndpointCodecMap{
		"add": jsonrpc.EndpointCodec{
			Endpoint: endpoints.AddEndpoint,
			Decode:   decodeAddRequest,
			Encode:   encodeAddResponse,
		},
	}
}

// decodeAddRequest accepts the operands by position, [a, b], or by name,
// {"a": a, "b": b}.
func decodeAddRequest(_ context.Context, msg json.RawMessage) (interface{}, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return nil, invalidParams("add requires params a and b")
	}

	var raw [2]json.RawMessage
	switch msg[0] {
	case '[':
		var params []json.RawMessage
		if err := json.Unmarshal(msg, &params); err != nil {
			return nil, invalidParams("couldn't decode params: %s", err)
		}
		if len(params) != 2 {
			return nil, invalidParams("add takes exactly 2 params, got %d", len(params))
		}
		copy(raw[:], params)

	case '{':
		var params map[string]json.RawMessage
		if err := json.Unmarshal(msg, &params); err != nil {
			return nil, invalidParams("couldn't decode params: %s", err)
		}
		var unknown []string
		for name := range params {
			if name != "a" && name != "b" {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, invalidParams("unknown params: %s", strings.Join(unknown, ", "))
		}
		var ok bool
		if raw[0], ok = params["a"]; !ok {
			return nil, invalidParams("missing param a")
		}
		if raw[1], ok = params["b"]; !ok {
			return nil, invalidParams("missing param b")
		}

	default:
		return nil, invalidParams("params must be an array or an object")
	}

	var req addendpoint.AddRequest
	if err := json.Unmarshal(raw[0], &req.A); err != nil {
		return nil, invalidParams("param a: %s", err)
	}
	if err := json.Unmarshal(raw[1], &req.B); err != nil {
		return nil, invalidParams("param b: %s", err)
	}
	return req, nil
}

func encodeAddResponse(_ context.Context, obj interface{}) (json.RawMessage, error) {
	res, ok := obj.(addendpoint.AddResponse)
	if !ok {
		return nil, errors.Errorf("couldn't assert response as AddResponse, got %T", obj)
	}
	if res.Err != nil {
		return nil, businessError(res.Err)
	}
	b, err := json.Marshal(res.V)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't marshal response")
	}
	return b, nil
}

func encodeAddRequest(_ context.Context, obj interface{}) (json.RawMessage, error) {
	req, ok := obj.(addendpoint.AddRequest)
	if !ok {
		return nil, errors.Errorf("couldn't assert request as AddRequest, got %T", obj)
	}
	b, err := json.Marshal([]addservice.Number{req.A, req.B})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't marshal request")
	}
	return b, nil
}

func decodeAddResponse(_ context.Context, res jsonrpc.Response) (interface{}, error) {
	if res.Error != nil {
		return nil, res.Error
	}
	var v addservice.Number
	if err := json.Unmarshal(res.Result, &v); err != nil {
		return nil, errors.Wrap(err, "couldn't unmarshal result")
	}
	return addendpoint.AddResponse{V: v}, nil
}

func invalidParams(format string, args ...interface{}) error {
	return &jsonrpc.Error{
		Code:    jsonrpc.InvalidParamsError,
		Message: fmt.Sprintf(format, args...),
	}
}

// businessError maps service errors onto JSON RPC error codes.
func businessError(err error) error {
	code := jsonrpc.InternalError
	if errors.Cause(err) == addservice.ErrNotNumeric {
		code = jsonrpc.InvalidParamsError
	}
	return &jsonrpc.Error{
		Code:    code,
		Message: err.Error(),
	}
}
