package addservice

import (
	"context"
	"time"

	"github.com/go-kit/log"

	"github.com/coinbub/testrpc/metrics"
)

// Middleware describes a service (as opposed to endpoint) middleware.
type Middleware func(Service) Service

// LoggingMiddleware takes a logger as a dependency
// and returns a service Middleware.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Add(ctx context.Context, a, b Number) (v Number, err error) {
	defer func(begin time.Time) {
		mw.logger.Log("method", "add", "a", a, "b", b, "v", v, "err", err, "took", time.Since(begin))
	}(time.Now())
	return mw.next.Add(ctx, a, b)
}

// InstrumentingMiddleware returns a service middleware that counts the
// successful additions performed by the service.
func InstrumentingMiddleware(added metrics.Counter) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{
			added: added,
			next:  next,
		}
	}
}

type instrumentingMiddleware struct {
	added metrics.Counter
	next  Service
}

func (mw instrumentingMiddleware) Add(ctx context.Context, a, b Number) (Number, error) {
	v, err := mw.next.Add(ctx, a, b)
	if err == nil {
		mw.added.Add(1)
	}
	return v, err
}
