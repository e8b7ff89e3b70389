package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gustavobizon/sprint-programacao/internal/auth"
)

// streamTicket logs in and requests a stream ticket.
func streamTicket(t *testing.T, srv *Server, token string) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/stream/ticket", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ticket status = %d, body = %s", rec.Code, rec.Body.String())
	}
	ticket, _ := decodeBody(t, rec)["ticket"].(string)
	if ticket == "" {
		t.Fatal("empty ticket")
	}
	return ticket
}

func dialStream(t *testing.T, ts *httptest.Server, ticket string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream?ticket=" + ticket
	return websocket.DefaultDialer.Dial(url, nil)
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", hub.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStream_ReceivesStoredReadings(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	register(t, srv, "alice", "secret", "Rex", "")
	token := login(t, srv, "alice", "secret")

	conn, _, err := dialStream(t, ts, streamTicket(t, srv, token))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, srv.Hub(), 1)

	rec := do(t, srv, http.MethodPost, "/dados-sensores", token, map[string]any{
		"sensor_id": 7, "temperatura": 22.5, "umidade": 50, "vibracao": 0.4,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var msg struct {
		Type      string `json:"type"`
		EventType string `json:"event_type"`
		Payload   struct {
			SensorID    int64   `json:"sensor_id"`
			Temperature float64 `json:"temperatura"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if msg.Type != StreamTypeEvent || msg.EventType != EventReadingStored {
		t.Errorf("message type = %s/%s", msg.Type, msg.EventType)
	}
	if msg.Payload.SensorID != 7 || msg.Payload.Temperature != 22.5 {
		t.Errorf("payload = %+v", msg.Payload)
	}
}

func TestStream_Ping(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	register(t, srv, "alice", "secret", "Rex", "")
	token := login(t, srv, "alice", "secret")

	conn, _, err := dialStream(t, ts, streamTicket(t, srv, token))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(StreamMessage{Type: StreamTypePing}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply StreamMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if reply.Type != StreamTypePong {
		t.Errorf("reply type = %q, want pong", reply.Type)
	}
}

func TestStream_TicketIsSingleUse(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	register(t, srv, "alice", "secret", "Rex", "")
	token := login(t, srv, "alice", "secret")
	ticket := streamTicket(t, srv, token)

	conn, _, err := dialStream(t, ts, ticket)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	conn.Close()

	_, resp, err := dialStream(t, ts, ticket)
	if err == nil {
		t.Fatal("second dial with the same ticket succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("second dial response = %v, want 403", resp)
	}
}

func TestStream_RequiresTicket(t *testing.T) {
	srv := testServer(t)

	rec := do(t, srv, http.MethodGet, "/stream", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no ticket status = %d, want 401", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, "/stream?ticket=bogus", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("bogus ticket status = %d, want 403", rec.Code)
	}
}

func TestStream_RejectedWhilePaused(t *testing.T) {
	srv := testServer(t)
	register(t, srv, "alice", "secret", "Rex", "")
	token := login(t, srv, "alice", "secret")
	ticket := streamTicket(t, srv, token)

	do(t, srv, http.MethodPost, "/pausar-servico", token, map[string]string{"status": "pausar"})

	rec := do(t, srv, http.MethodGet, "/stream?ticket="+ticket, "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStream_PausedSuppressesReadings(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	register(t, srv, "alice", "secret", "Rex", "")
	token := login(t, srv, "alice", "secret")

	conn, _, err := dialStream(t, ts, streamTicket(t, srv, token))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, srv.Hub(), 1)

	do(t, srv, http.MethodPost, "/pausar-servico", token, map[string]string{"status": "pausar"})
	do(t, srv, http.MethodPost, "/dados-sensores", token, map[string]any{
		"sensor_id": 7, "temperatura": 22.5, "umidade": 50, "vibracao": 0.4,
	})
	do(t, srv, http.MethodPost, "/pausar-servico", token, map[string]string{"status": "reiniciar"})

	// Only the two availability events arrive; the reading stored while
	// paused is not delivered.
	for _, want := range []string{"paused", "active"} {
		//nolint:errcheck // test deadline
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			EventType string            `json:"event_type"`
			Payload   map[string]string `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if msg.EventType != EventAvailability || msg.Payload["status"] != want {
			t.Errorf("event = %+v, want availability %s", msg, want)
		}
	}
}

func TestTicketStore(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newTicketStore(time.Minute)
	store.now = func() time.Time { return now }

	claims := &auth.Claims{Role: auth.RoleUser}
	claims.Subject = "42"

	ticket, ttl := store.issue(claims)
	if ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}
	entry, ok := store.redeem(ticket)
	if !ok || entry.accountID != "42" {
		t.Errorf("redeem = %+v, %v", entry, ok)
	}
	if _, ok := store.redeem(ticket); ok {
		t.Error("ticket redeemed twice")
	}

	expired, _ := store.issue(claims)
	now = now.Add(2 * time.Minute)
	if _, ok := store.redeem(expired); ok {
		t.Error("expired ticket redeemed")
	}

	store.issue(claims)
	now = now.Add(2 * time.Minute)
	store.sweep()
	if store.count() != 0 {
		t.Errorf("count after sweep = %d, want 0", store.count())
	}
}

func TestNewTicketStore_DefaultTTL(t *testing.T) {
	if got := newTicketStore(0).ttl; got != defaultTicketTTL {
		t.Errorf("ttl = %v, want %v", got, defaultTicketTTL)
	}
}
