package mgmtapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
)

func testAPI(t *testing.T) (*API, string) {
	t.Helper()
	status := Status{
		State: func() string { return "operating" },
		LastEvent: func() (message.ReceiveEvent, bool) {
			return message.ReceiveEvent{
				Sender:    address.New(0x11, 0x1234),
				Broadcast: true,
				Payload:   payload.NewAck(),
			}, true
		},
	}
	var lastAddr address.Address
	var lastText string
	transmit := func(addr address.Address, text string) bool {
		lastAddr = addr
		lastText = text
		return true
	}
	a := New("127.0.0.1:0", status, transmit, zap.NewNop().Sugar())
	_ = lastAddr
	_ = lastText
	return a, a.authToken
}

func TestHandleStatusRequiresAuth(t *testing.T) {
	a, _ := testAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestHandleStatusJSON(t *testing.T) {
	a, token := testAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.State != "operating" {
		t.Errorf("state = %q, want operating", resp.State)
	}
	if !resp.HasLastEvent || resp.LastSender == "" {
		t.Errorf("expected last event populated, got %+v", resp)
	}
}

func TestHandleMessage(t *testing.T) {
	a, token := testAPI(t)
	body, _ := json.Marshal(messageRequest{Addr: "11:1234", Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/message", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var resp messageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK {
		t.Errorf("expected ok=true")
	}
}

func TestHandleMessageMalformedAddr(t *testing.T) {
	a, token := testAPI(t)
	body, _ := json.Marshal(messageRequest{Addr: "not-an-address", Text: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/message", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
