package endpoint_test

import (
	"context"
	"testing"

	"github.com/coinbub/testrpc/endpoint"
)

func TestNop(t *testing.T) {
	response, err := endpoint.Nop(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := response.(struct{}); !ok {
		t.Fatalf("want struct{}, have %T", response)
	}
}

func TestChainSingle(t *testing.T) {
	var calls int
	count := func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			calls++
			return next(ctx, request)
		}
	}
	if _, err := endpoint.Chain(count)(endpoint.Nop)(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if want, have := 1, calls; want != have {
		t.Fatalf("want %d, have %d", want, have)
	}
}
