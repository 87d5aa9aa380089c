package solana

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testAddr = "4Nd1mYQx1ZQDLLgN3bfLDolqEqRQkCzLd4b3FhZzVLaP"

func fetchKind(t *testing.T, err error) FetchKind {
	t.Helper()
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	return fe.Kind
}

func TestGetBalanceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":5000000000}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	lamports, err := c.GetBalance(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if lamports != 5_000_000_000 {
		t.Fatalf("expected 5000000000 lamports, got %d", lamports)
	}
}

func TestGetBalanceZeroIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":0}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	lamports, err := c.GetBalance(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("zero balance must not be an error: %v", err)
	}
	if lamports != 0 {
		t.Fatalf("expected 0 lamports, got %d", lamports)
	}
}

func TestGetBalanceRemoteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	_, err := c.GetBalance(context.Background(), "not-a-real-address")
	if err == nil {
		t.Fatal("expected error for rpc rejection")
	}
	if kind := fetchKind(t, err); kind != FetchRemoteRejected {
		t.Fatalf("expected FetchRemoteRejected, got %v", kind)
	}
}

func TestGetBalanceTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, 0)
	_, err := c.GetBalance(context.Background(), testAddr)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := fetchKind(t, err); kind != FetchTimeout {
		t.Fatalf("expected FetchTimeout, got %v", kind)
	}
}

func TestGetBalanceMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	_, err := c.GetBalance(context.Background(), testAddr)
	if err == nil {
		t.Fatal("expected error for malformed response")
	}
	if kind := fetchKind(t, err); kind != FetchProtocolError {
		t.Fatalf("expected FetchProtocolError, got %v", kind)
	}
}

func TestGetBalanceHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	_, err := c.GetBalance(context.Background(), testAddr)
	if err == nil {
		t.Fatal("expected error for 500 status")
	}
	if kind := fetchKind(t, err); kind != FetchProtocolError {
		t.Fatalf("expected FetchProtocolError, got %v", kind)
	}
}

func TestGetBalanceUnreachable(t *testing.T) {
	// Nothing listens here.
	c := NewClient("http://127.0.0.1:1", time.Second, 0)
	_, err := c.GetBalance(context.Background(), testAddr)
	if err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
	if kind := fetchKind(t, err); kind != FetchUnreachable {
		t.Fatalf("expected FetchUnreachable, got %v", kind)
	}
}

func TestGetBalanceMissingResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0)
	_, err := c.GetBalance(context.Background(), testAddr)
	if err == nil {
		t.Fatal("expected error for response without result")
	}
	if kind := fetchKind(t, err); kind != FetchProtocolError {
		t.Fatalf("expected FetchProtocolError, got %v", kind)
	}
}
