package http_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	httptransport "github.com/coinbub/testrpc/transport/http"
)

func TestSetRequestHeader(t *testing.T) {
	const (
		key = "X-Foo"
		val = "12345"
	)
	r, _ := http.NewRequest("POST", "http://example.com", nil)
	httptransport.SetRequestHeader(key, val)(context.Background(), r)
	if want, have := val, r.Header.Get(key); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestSetBasicAuth(t *testing.T) {
	r, _ := http.NewRequest("POST", "http://example.com", nil)
	httptransport.SetBasicAuth("user", "pass")(context.Background(), r)
	user, pass, ok := r.BasicAuth()
	if !ok {
		t.Fatal("no basic auth on request")
	}
	if want, have := "user:pass", user+":"+pass; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestSetContentType(t *testing.T) {
	const contentType = "application/json"
	rec := httptest.NewRecorder()
	httptransport.SetContentType(contentType)(context.Background(), rec)
	if want, have := contentType, rec.Header().Get("Content-Type"); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestPopulateRequestContext(t *testing.T) {
	r := httptest.NewRequest("POST", "http://example.com/", nil)
	r.Header.Set("User-Agent", "tester")
	ctx := httptransport.PopulateRequestContext(context.Background(), r)

	for key, want := range map[interface{}]string{
		httptransport.ContextKeyRequestMethod:    "POST",
		httptransport.ContextKeyRequestPath:      "/",
		httptransport.ContextKeyRequestHost:      "example.com",
		httptransport.ContextKeyRequestUserAgent: "tester",
	} {
		if have, _ := ctx.Value(key).(string); want != have {
			t.Errorf("key %v: want %q, have %q", key, want, have)
		}
	}
}

func TestInterceptingWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	iw := httptransport.NewInterceptingWriter(rec)
	if want, have := http.StatusOK, iw.Code(); want != have {
		t.Errorf("default code: want %d, have %d", want, have)
	}
	iw.WriteHeader(http.StatusNoContent)
	iw.Write([]byte("abc"))
	if want, have := http.StatusNoContent, iw.Code(); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
	if want, have := int64(3), iw.Written(); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	sampleErr := errors.New("oh no, an error")
	err := error(httptransport.TransportError{Domain: httptransport.DomainDo, Err: sampleErr})
	if !errors.Is(err, sampleErr) {
		t.Errorf("want %v to wrap %v", err, sampleErr)
	}
}

func ExampleTransportError() {
	sampleErr := errors.New("oh no, an error")
	err := httptransport.TransportError{Domain: httptransport.DomainDo, Err: sampleErr}
	fmt.Println(err)
	// Output:
	// Do: oh no, an error
}
