package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/coinbub/testrpc/transport/http/jsonrpc"
)

func TestRequestIDRoundTrip(t *testing.T) {
	for _, raw := range []string{`1`, `-7`, `2.5`, `"abc"`, `null`} {
		var id jsonrpc.RequestID
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if want, have := raw, string(b); want != have {
			t.Errorf("want %s, have %s", want, have)
		}
	}
}

func TestRequestIDRejectsStructuredValues(t *testing.T) {
	for _, raw := range []string{`true`, `{}`, `[1]`} {
		var id jsonrpc.RequestID
		if err := json.Unmarshal([]byte(raw), &id); err == nil {
			t.Errorf("%s: want error, have none", raw)
		}
	}
}

func TestRequestIDAccessors(t *testing.T) {
	if i, err := jsonrpc.NewIntRequestID(42).Int(); err != nil || i != 42 {
		t.Errorf("Int: want 42, have %d (%v)", i, err)
	}
	if s, err := jsonrpc.NewStringRequestID("x").String(); err != nil || s != "x" {
		t.Errorf("String: want x, have %q (%v)", s, err)
	}
	if _, err := jsonrpc.NewStringRequestID("x").Int(); err == nil {
		t.Error("Int on string id: want error, have none")
	}
	if !jsonrpc.NewIntRequestID(3).Equal(jsonrpc.NewIntRequestID(3)) {
		t.Error("equal ids compare unequal")
	}
}

func TestRequestNotificationVersusNullID(t *testing.T) {
	var notification, nullID jsonrpc.Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"add"}`), &notification); err != nil {
		t.Fatal(err)
	}
	if !notification.IsNotification() {
		t.Error("request without id should be a notification")
	}
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"add","id":null}`), &nullID); err != nil {
		t.Fatal(err)
	}
	if nullID.IsNotification() {
		t.Error("request with null id should not be a notification")
	}
	if !nullID.ID.IsNull() {
		t.Error("want null id")
	}
}

func TestResponseFieldOrder(t *testing.T) {
	res := jsonrpc.Response{
		JSONRPC: jsonrpc.Version,
		Result:  json.RawMessage(`5`),
		ID:      jsonrpc.NewIntRequestID(1),
	}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := `{"jsonrpc":"2.0","result":5,"id":1}`, string(b); want != have {
		t.Errorf("want %s, have %s", want, have)
	}
}
