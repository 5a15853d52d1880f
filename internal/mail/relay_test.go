package mail

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/governance-console/internal/notify"
)

func TestNormalizeRelayError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "message array joined",
			body: `{"message":["field1 invalid","field2 invalid"]}`,
			want: "field1 invalid, field2 invalid",
		},
		{
			name: "message string passed through",
			body: `{"message":"quota exceeded"}`,
			want: "quota exceeded",
		},
		{
			name: "non json falls back to raw body",
			body: `internal server error`,
			want: "internal server error",
		},
		{
			name: "json without message falls back to raw body",
			body: `{"error":"boom"}`,
			want: `{"error":"boom"}`,
		},
		{
			name: "empty body",
			body: "",
			want: "unknown relay error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeRelayError([]byte(tc.body)); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRelayMailerSend(t *testing.T) {
	var received relayPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	mailer, err := NewRelayMailer(server.URL, server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	msg := notify.Message{
		To:      "ana@example.com",
		Subject: "Convocatoria",
		Body:    "detalle",
		Attachment: notify.Attachment{
			Name:   "convocatoria.pdf",
			Base64: "cGRm",
		},
	}
	if err := mailer.Send(context.Background(), msg); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if received.To != "ana@example.com" || received.AttachmentName != "convocatoria.pdf" {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestRelayMailerSendSurfacesNormalizedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":["field1 invalid","field2 invalid"]}`))
	}))
	defer server.Close()

	mailer, err := NewRelayMailer(server.URL, server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	err = mailer.Send(context.Background(), notify.Message{To: "ana@example.com"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "field1 invalid, field2 invalid") {
		t.Fatalf("expected normalized message in error, got %q", err.Error())
	}
}
