package addendpoint_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-logfmt/logfmt"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pkg/errors"

	"github.com/coinbub/testrpc/metrics/discard"
	"github.com/coinbub/testrpc/metrics/generic"
	"github.com/coinbub/testrpc/pkg/addendpoint"
	"github.com/coinbub/testrpc/pkg/addservice"
)

func TestSetAdd(t *testing.T) {
	var (
		duration = generic.NewHistogram("duration", 50)
		tracer   = mocktracer.New()
		set      = addendpoint.New(addservice.NewBasicService(), log.NewNopLogger(), duration, tracer)
	)

	v, err := set.Add(context.Background(), addservice.Int(2), addservice.Int(3))
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "5", v.String(); want != have {
		t.Errorf("want %s, have %s", want, have)
	}

	if want, have := uint64(1), duration.Count(); want != have {
		t.Errorf("observations: want %d, have %d", want, have)
	}
	spans := tracer.FinishedSpans()
	if want, have := 1, len(spans); want != have {
		t.Fatalf("spans: want %d, have %d", want, have)
	}
	if want, have := "Add", spans[0].OperationName; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestSetAddBusinessError(t *testing.T) {
	set := addendpoint.New(addservice.NewBasicService(), log.NewNopLogger(), discard.NewHistogram(), mocktracer.New())

	_, err := set.Add(context.Background(), addservice.Float(1.7e308), addservice.Float(1.7e308))
	if want, have := addservice.ErrNotFinite, errors.Cause(err); want != have {
		t.Errorf("want %v, have %v", want, have)
	}
}

func TestSetAddTransportError(t *testing.T) {
	errTransport := errors.New("connection refused")
	set := addendpoint.Set{
		AddEndpoint: func(context.Context, interface{}) (interface{}, error) { return nil, errTransport },
	}
	if _, err := set.Add(context.Background(), addservice.Int(1), addservice.Int(1)); err != errTransport {
		t.Errorf("want %v, have %v", errTransport, err)
	}
}

func TestInstrumentingMiddlewareObservesFailures(t *testing.T) {
	duration := generic.NewHistogram("duration", 50)
	ep := addendpoint.InstrumentingMiddleware(duration)(addendpoint.MakeAddEndpoint(addservice.NewBasicService()))

	if _, err := ep(context.Background(), addendpoint.AddRequest{A: addservice.Float(1.7e308), B: addservice.Float(1.7e308)}); err != nil {
		t.Fatal(err)
	}
	if want, have := uint64(1), duration.Count(); want != have {
		t.Errorf("observations: want %d, have %d", want, have)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	ep := addendpoint.LoggingMiddleware(log.NewLogfmtLogger(&buf))(addendpoint.MakeAddEndpoint(addservice.NewBasicService()))

	if _, err := ep(context.Background(), addendpoint.AddRequest{A: addservice.Float(1.7e308), B: addservice.Float(1.7e308)}); err != nil {
		t.Fatal(err)
	}

	dec := logfmt.NewDecoder(&buf)
	if !dec.ScanRecord() {
		t.Fatalf("no log record: %v", dec.Err())
	}
	have := map[string]string{}
	for dec.ScanKeyval() {
		have[string(dec.Key())] = string(dec.Value())
	}
	if want := "null"; have["transport_error"] != want {
		t.Errorf("transport_error: want %q, have %q", want, have["transport_error"])
	}
	if !bytes.Contains([]byte(have["business_error"]), []byte(addservice.ErrNotFinite.Error())) {
		t.Errorf("business_error: want %q in %q", addservice.ErrNotFinite, have["business_error"])
	}
}
