package transport_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-kit/log"

	"github.com/coinbub/testrpc/transport"
)

func TestLogErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	errorHandler := transport.NewLogErrorHandler(log.NewLogfmtLogger(&buf))

	err := errors.New("error")
	errorHandler.Handle(context.Background(), err)

	if want, have := "err=error", strings.TrimSpace(buf.String()); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestErrorHandlerFunc(t *testing.T) {
	var have error
	h := transport.ErrorHandlerFunc(func(_ context.Context, err error) { have = err })

	want := errors.New("boom")
	h.Handle(context.Background(), want)
	if have != want {
		t.Errorf("want %v, have %v", want, have)
	}
}
