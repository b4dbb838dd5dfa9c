package opentracing

import (
	"context"
	"strconv"

	"github.com/opentracing/opentracing-go"
	otext "github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"

	"github.com/coinbub/testrpc/endpoint"
	"github.com/coinbub/testrpc/transport/http/jsonrpc"
)

// EndpointOption tunes the spans created by TraceEndpoint.
type EndpointOption func(*endpointOptions)

type endpointOptions struct {
	ignoreBusinessError bool
	tags                opentracing.Tags
}

// WithIgnoreBusinessError keeps a failed response, as reported by
// endpoint.Failer, from marking the span as errored. The failure is still
// logged on the span.
func WithIgnoreBusinessError(ignore bool) EndpointOption {
	return func(o *endpointOptions) { o.ignoreBusinessError = ignore }
}

// WithTags sets tags on every span. Repeated calls merge.
func WithTags(tags opentracing.Tags) EndpointOption {
	return func(o *endpointOptions) {
		for key, value := range tags {
			o.tags[key] = value
		}
	}
}

// TraceEndpoint returns a Middleware that wraps the `next` Endpoint in an
// OpenTracing Span called `operationName`. The span is a child of the span in
// ctx, if any, and is tagged with the JSON RPC method and id being served.
func TraceEndpoint(tracer opentracing.Tracer, operationName string, opts ...EndpointOption) endpoint.Middleware {
	cfg := &endpointOptions{tags: make(opentracing.Tags)}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			var startOpts []opentracing.StartSpanOption
			if parent := opentracing.SpanFromContext(ctx); parent != nil {
				startOpts = append(startOpts, opentracing.ChildOf(parent.Context()))
			}
			for key, value := range cfg.tags {
				startOpts = append(startOpts, opentracing.Tag{Key: key, Value: value})
			}
			span := tracer.StartSpan(operationName, startOpts...)
			defer span.Finish()

			if method, ok := ctx.Value(jsonrpc.ContextKeyRequestMethod).(string); ok {
				span.SetTag("rpc.method", method)
			}
			if id, ok := jsonrpc.RequestIDFromContext(ctx); ok && id != nil {
				span.SetTag("rpc.id", string(mustMarshal(id)))
			}

			ctx = opentracing.ContextWithSpan(ctx, span)

			defer func() {
				if err != nil {
					otext.LogError(span, err)
					return
				}

				if res, ok := response.(endpoint.Failer); ok && res.Failed() != nil {
					span.LogFields(
						otlog.String("event", "error"),
						otlog.String("error.object", res.Failed().Error()),
						otlog.String("message", "application error"),
					)

					if !cfg.ignoreBusinessError {
						otext.Error.Set(span, true)
					}
				}
			}()

			return next(ctx, request)
		}
	}
}

// TraceServer returns a Middleware that wraps the `next` Endpoint in an
// OpenTracing Span called `operationName`.
func TraceServer(tracer opentracing.Tracer, operationName string, opts ...EndpointOption) endpoint.Middleware {
	opts = append(opts, WithTags(opentracing.Tags{
		otext.SpanKindRPCServer.Key: otext.SpanKindRPCServer.Value,
	}))

	return TraceEndpoint(tracer, operationName, opts...)
}

// TraceClient returns a Middleware that wraps the `next` Endpoint in an
// OpenTracing Span called `operationName`.
func TraceClient(tracer opentracing.Tracer, operationName string, opts ...EndpointOption) endpoint.Middleware {
	opts = append(opts, WithTags(opentracing.Tags{
		otext.SpanKindRPCClient.Key: otext.SpanKindRPCClient.Value,
	}))

	return TraceEndpoint(tracer, operationName, opts...)
}

func mustMarshal(id *jsonrpc.RequestID) []byte {
	b, err := id.MarshalJSON()
	if err != nil {
		return []byte(strconv.Quote(err.Error()))
	}
	return b
}
