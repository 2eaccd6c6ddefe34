package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token")
}

func ack(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(sendResponse{Success: true, MessageID: "m1"})
}

func TestSendText_WireFormat(t *testing.T) {
	var got textPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		ack(w)
	})

	if err := c.SendText(context.Background(), "(34) 99672-7535", "Oi!"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got.Phone != "5534996727535@s.whatsapp.net" {
		t.Errorf("phone = %q; want wire format with country prefix", got.Phone)
	}
	if got.Message != "Oi!" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestSendText_NoDoublePrefix(t *testing.T) {
	var got textPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		ack(w)
	})
	if err := c.SendText(context.Background(), "5534996727535", "ok"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got.Phone != "5534996727535@s.whatsapp.net" {
		t.Errorf("phone = %q; 55 prefix must not be doubled", got.Phone)
	}
}

func TestSendText_InvalidPhone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the gateway")
	})
	if err := c.SendText(context.Background(), "123", "oi"); err == nil {
		t.Fatal("expected error for invalid phone")
	}
}

func TestSendText_GatewayRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sendResponse{Success: false})
	})
	if err := c.SendText(context.Background(), "34996727535", "oi"); err == nil {
		t.Fatal("expected error when gateway reports success=false")
	}
}

func TestSendAudio_Base64(t *testing.T) {
	media := []byte{0x49, 0x44, 0x33, 0x04}
	var got audioPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send-audio" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		ack(w)
	})

	if err := c.SendAudio(context.Background(), "34996727535", media, "audio/mpeg"); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if got.Mime != "audio/mpeg" {
		t.Errorf("mime = %q", got.Mime)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.AudioBase64)
	if err != nil {
		t.Fatalf("audio is not valid base64: %v", err)
	}
	if string(decoded) != string(media) {
		t.Errorf("audio round trip mismatch")
	}
}

func TestStatusAndGatewayError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			_ = json.NewEncoder(w).Encode(StatusResponse{Status: "open", Connected: true, Phone: "5534996727535"})
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	})

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Connected || st.Status != "open" {
		t.Errorf("unexpected status %+v", st)
	}

	if err := c.Connect(context.Background()); err == nil {
		t.Error("expected error on non-2xx response")
	}
}
