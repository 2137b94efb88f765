package channel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSMSAdapterSendSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		sid, token, ok := r.BasicAuth()
		if !ok || sid != "AC123" || token != "secret" {
			t.Errorf("basic auth = %q/%q, ok=%v", sid, token, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostFormValue("To"); got != "+15550001111" {
			t.Errorf("To = %q", got)
		}
		if got := r.PostFormValue("From"); got != "+15559990000" {
			t.Errorf("From = %q", got)
		}
		if got := r.PostFormValue("Body"); got != "trash night" {
			t.Errorf("Body = %q", got)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42"}`))
	}))
	defer server.Close()

	adapter := NewSMSAdapter(SMSConfig{
		BaseURL:    server.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15559990000",
	})
	if !adapter.IsConfigured() {
		t.Fatal("adapter should be configured")
	}

	resp, err := adapter.Send(context.Background(), "+15550001111", Message{Body: "trash night"})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}
	if resp.ProviderMessageID != "SM42" {
		t.Fatalf("ProviderMessageID = %q, want SM42", resp.ProviderMessageID)
	}
}

func TestSMSAdapterRejectionIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid number"}`))
	}))
	defer server.Close()

	adapter := NewSMSAdapter(SMSConfig{
		BaseURL:    server.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15559990000",
	})

	_, err := adapter.Send(context.Background(), "bogus", Message{Body: "x"})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error = %T, want *ProviderError", err)
	}
	if IsTransient(err) {
		t.Fatal("a 400 rejection should be permanent")
	}
}

func TestSMSAdapterUnconfigured(t *testing.T) {
	t.Parallel()

	adapter := NewSMSAdapter(SMSConfig{BaseURL: "https://api.example.com"})
	if adapter.IsConfigured() {
		t.Fatal("partial config should not be configured")
	}
}
