package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-stack/stack"

	"github.com/coinbub/testrpc/transport"
	httptransport "github.com/coinbub/testrpc/transport/http"
)

type requestIDKeyType struct{}

var requestIDKey requestIDKeyType

// ContextKeyRequestMethod is populated in the context before the endpoint
// runs. Its value is the JSON RPC method name.
const ContextKeyRequestMethod = contextKey("jsonrpc-method")

type contextKey string

// RequestIDFromContext returns the id of the JSON RPC call being served. It
// reports false for notifications.
func RequestIDFromContext(ctx context.Context) (*RequestID, bool) {
	id, ok := ctx.Value(requestIDKey).(*RequestID)
	return id, ok
}

// Server wraps an endpoint and implements http.Handler.
type Server struct {
	ecm          EndpointCodecMap
	before       []httptransport.RequestFunc
	after        []httptransport.ServerResponseFunc
	errorEncoder ErrorEncoder
	finalizer    httptransport.ServerFinalizerFunc
	errorHandler transport.ErrorHandler
}

// NewServer constructs a new server, which implements http.Server.
func NewServer(
	ecm EndpointCodecMap,
	options ...ServerOption,
) *Server {
	s := &Server{
		ecm:          ecm,
		errorEncoder: DefaultErrorEncoder,
		errorHandler: transport.NewLogErrorHandler(log.NewNopLogger()),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ServerOption sets an optional parameter for servers.
type ServerOption func(*Server)

// ServerBefore functions are executed on the HTTP request object before the
// request is decoded.
func ServerBefore(before ...httptransport.RequestFunc) ServerOption {
	return func(s *Server) { s.before = append(s.before, before...) }
}

// ServerAfter functions are executed on the HTTP response writer after the
// endpoint is invoked, but before anything is written to the client.
func ServerAfter(after ...httptransport.ServerResponseFunc) ServerOption {
	return func(s *Server) { s.after = append(s.after, after...) }
}

// ServerErrorEncoder is used to encode errors that spoil the whole HTTP
// request, such as a body that is not valid JSON. Errors of individual calls
// are always answered with a JSON RPC error object. By default,
// DefaultErrorEncoder is used.
func ServerErrorEncoder(ee ErrorEncoder) ServerOption {
	return func(s *Server) { s.errorEncoder = ee }
}

// ServerErrorHandler is used to handle non-terminal errors. By default, non-terminal errors
// are ignored. This is intended as a diagnostic measure. Finer-grained control
// of error handling, including logging in more detail, should be performed in a
// custom ServerErrorEncoder or ServerFinalizer, both of which have access to
// the context.
func ServerErrorHandler(errorHandler transport.ErrorHandler) ServerOption {
	return func(s *Server) { s.errorHandler = errorHandler }
}

// ServerFinalizer is executed at the end of every HTTP request.
// By default, no finalizer is registered.
func ServerFinalizer(f httptransport.ServerFinalizerFunc) ServerOption {
	return func(s *Server) { s.finalizer = f }
}

// ServeHTTP implements http.Handler.
func (s Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = io.WriteString(w, "405 must POST\n")
		return
	}
	ctx := r.Context()

	if s.finalizer != nil {
		iw := httptransport.NewInterceptingWriter(w)
		defer func() {
			ctx = context.WithValue(ctx, httptransport.ContextKeyResponseHeaders, iw.Header())
			ctx = context.WithValue(ctx, httptransport.ContextKeyResponseSize, iw.Written())
			s.finalizer(ctx, iw.Code(), r)
		}()
		w = iw
	}

	for _, f := range s.before {
		ctx = f(ctx, r)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorHandler.Handle(ctx, err)
		s.errorEncoder(ctx, parseError(fmt.Sprintf("couldn't read request body: %s", err)), w)
		return
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		err := parseError("request body is not valid JSON")
		s.errorHandler.Handle(ctx, err)
		s.errorEncoder(ctx, err, w)
		return
	}

	// A batch is answered with an array, a single call with an object.
	var (
		batch     = body[0] == '['
		responses []*Response
	)
	if batch {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			s.errorHandler.Handle(ctx, err)
			s.errorEncoder(ctx, parseError(err.Error()), w)
			return
		}
		if len(items) == 0 {
			err := invalidRequestError("empty batch")
			s.errorHandler.Handle(ctx, err)
			s.errorEncoder(ctx, err, w)
			return
		}
		for _, item := range items {
			if res := s.call(ctx, item); res != nil {
				responses = append(responses, res)
			}
		}
	} else if res := s.call(ctx, body); res != nil {
		responses = append(responses, res)
	}

	for _, f := range s.after {
		ctx = f(ctx, w)
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", ContentType)
	var payload interface{} = responses[0]
	if batch {
		payload = responses
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.errorHandler.Handle(ctx, err)
	}
}

// call serves a single JSON RPC request object. It returns nil when nothing
// must be written back, which is the case for every notification.
func (s Server) call(ctx context.Context, raw json.RawMessage) (res *Response) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		err = invalidRequestError("request must be a JSON object")
		s.errorHandler.Handle(ctx, err)
		return errorResponse(nil, err)
	}

	if req.JSONRPC != "" && req.JSONRPC != Version {
		err := invalidRequestError(fmt.Sprintf("unsupported JSON RPC version %q", req.JSONRPC))
		s.errorHandler.Handle(ctx, err)
		return errorResponse(req.ID, err)
	}
	if req.Method == "" {
		err := invalidRequestError("method name missing")
		s.errorHandler.Handle(ctx, err)
		return errorResponse(req.ID, err)
	}

	fail := func(err error) *Response {
		s.errorHandler.Handle(ctx, err)
		if req.IsNotification() {
			return nil
		}
		return errorResponse(req.ID, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.errorHandler.Handle(ctx, fmt.Errorf("recovered from panic in %s: %v %v", req.Method, rec, stack.Trace().TrimRuntime()))
			res = nil
			if !req.IsNotification() {
				res = errorResponse(req.ID, internalError(ErrorMessage(InternalError)))
			}
		}
	}()

	// Get the endpoint and codecs from the map using the method
	// defined in the JSON object
	ecm, ok := s.ecm[req.Method]
	if !ok {
		return fail(methodNotFoundError(fmt.Sprintf("Method %s was not found.", req.Method)))
	}

	ctx = context.WithValue(ctx, ContextKeyRequestMethod, req.Method)
	if !req.IsNotification() {
		ctx = context.WithValue(ctx, requestIDKey, req.ID)
	}

	// Decode the JSON "params"
	reqParams, err := ecm.Decode(ctx, req.Params)
	if err != nil {
		var ec ErrorCoder
		if !errors.As(err, &ec) {
			err = invalidParamsError(err.Error())
		}
		return fail(err)
	}

	// Call the Endpoint with the params
	response, err := ecm.Endpoint(ctx, reqParams)
	if err != nil {
		return fail(err)
	}

	// Encode the response from the Endpoint
	result, err := ecm.Encode(ctx, response)
	if err != nil {
		return fail(err)
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	if !json.Valid(result) {
		return fail(internalError("endpoint produced an invalid JSON result"))
	}

	if req.IsNotification() {
		return nil
	}
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      req.ID,
	}
}

// errorResponse turns err into a response error object. The code comes from
// ErrorCoder, falling back to InternalError, and an *Error keeps its data.
func errorResponse(id *RequestID, err error) *Response {
	e := Error{
		Code:    InternalError,
		Message: err.Error(),
	}
	var (
		ptr *Error
		val Error
		ec  ErrorCoder
	)
	switch {
	case errors.As(err, &ptr):
		e = *ptr
	case errors.As(err, &val):
		e = val
	case errors.As(err, &ec):
		e.Code = ec.ErrorCode()
	}
	if e.Message == "" {
		e.Message = ErrorMessage(e.Code)
	}
	return &Response{
		JSONRPC: Version,
		Error:   &e,
		ID:      id,
	}
}

// ErrorEncoder is responsible for encoding an error that is not tied to a
// single JSON RPC call.
type ErrorEncoder func(ctx context.Context, err error, w http.ResponseWriter)

// DefaultErrorEncoder writes the error to the ResponseWriter as a JSON RPC
// error response with a null id, using the code from ErrorCoder or
// InternalError. If the error implements Headerer, the provided headers will
// be applied to the response. The HTTP status is always 200, as JSON RPC
// errors travel in the body.
func DefaultErrorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	var headerer httptransport.Headerer
	if errors.As(err, &headerer) {
		for k, values := range headerer.Headers() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(errorResponse(nil, err))
}
