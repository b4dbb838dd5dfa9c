// Package addendpoint turns the add service into go-kit style endpoints.
package addendpoint

import (
	"context"

	"github.com/go-kit/log"
	stdopentracing "github.com/opentracing/opentracing-go"

	"github.com/coinbub/testrpc/endpoint"
	"github.com/coinbub/testrpc/metrics"
	"github.com/coinbub/testrpc/pkg/addservice"
	"github.com/coinbub/testrpc/tracing/opentracing"
)

// Set collects all of the endpoints that compose an add service. It's meant to
// be used as a helper struct, to collect all of the endpoints into a single
// parameter.
type Set struct {
	AddEndpoint endpoint.Endpoint
}

// New returns a Set that wraps the provided server, and wires in all of the
// expected endpoint middlewares via the various parameters.
func New(svc addservice.Service, logger log.Logger, duration metrics.Histogram, otTracer stdopentracing.Tracer) Set {
	var addEndpoint endpoint.Endpoint
	{
		addEndpoint = MakeAddEndpoint(svc)
		addEndpoint = opentracing.TraceServer(otTracer, "Add")(addEndpoint)
		addEndpoint = LoggingMiddleware(log.With(logger, "method", "Add"))(addEndpoint)
		addEndpoint = InstrumentingMiddleware(duration.With("method", "Add"))(addEndpoint)
	}
	return Set{
		AddEndpoint: addEndpoint,
	}
}

// Add implements the service interface, so Set may be used as a service.
// This is primarily useful in the context of a client library.
func (s Set) Add(ctx context.Context, a, b addservice.Number) (addservice.Number, error) {
	resp, err := s.AddEndpoint(ctx, AddRequest{A: a, B: b})
	if err != nil {
		return addservice.Number{}, err
	}
	response := resp.(AddResponse)
	return response.V, response.Err
}

// MakeAddEndpoint constructs an Add endpoint wrapping the service.
func MakeAddEndpoint(s addservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(AddRequest)
		v, err := s.Add(ctx, req.A, req.B)
		return AddResponse{V: v, Err: err}, nil
	}
}

// compile time assertions for our response types implementing endpoint.Failer.
var (
	_ endpoint.Failer = AddResponse{}
)

// AddRequest collects the request parameters for the Add method.
type AddRequest struct {
	A, B addservice.Number
}

// AddResponse collects the response values for the Add method.
type AddResponse struct {
	V   addservice.Number `json:"v"`
	Err error             `json:"-"` // should be intercepted by Failed/errorEncoder
}

// Failed implements endpoint.Failer.
func (r AddResponse) Failed() error { return r.Err }
