// Package addservice holds the business logic of the fixture: adding two
// numbers.
package addservice

import (
	"context"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/coinbub/testrpc/metrics"
)

// Service describes a service that adds things together.
type Service interface {
	Add(ctx context.Context, a, b Number) (Number, error)
}

var (
	// ErrNotNumeric is returned when an operand is not a JSON number.
	ErrNotNumeric = errors.New("operand is not a number")

	// ErrNotFinite is returned when a floating point sum overflows.
	ErrNotFinite = errors.New("result is not a finite number")
)

// New returns a basic Service with all of the expected middlewares wired in.
func New(logger log.Logger, added metrics.Counter) Service {
	var svc Service
	{
		svc = NewBasicService()
		svc = LoggingMiddleware(logger)(svc)
		svc = InstrumentingMiddleware(added)(svc)
	}
	return svc
}

// NewBasicService returns a naïve, stateless implementation of Service.
func NewBasicService() Service {
	return basicService{}
}

type basicService struct{}

// Add implements Service.
func (s basicService) Add(_ context.Context, a, b Number) (Number, error) {
	return a.Add(b)
}
