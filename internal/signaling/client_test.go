package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scout-sync-server/internal/domain"
)

func newRelayServer(t *testing.T) (*Relay, *httptest.Server) {
	t.Helper()
	relay := newTestRelay()

	mux := http.NewServeMux()
	mux.HandleFunc("/signal", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			resp := relay.Poll(r.URL.Query().Get("roomId"), r.URL.Query().Get("peerId"))
			json.NewEncoder(w).Encode(resp)

		case http.MethodPost:
			var msg domain.SignalingMessage
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			resp, err := relay.HandleMessage(&msg)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(resp)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return relay, srv
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func testClient(srv *httptest.Server, peerID string, role domain.PeerRole, onMessage func(*domain.SignalingMessage)) *Client {
	return NewClient(ClientConfig{
		BaseURL:      srv.URL,
		RoomID:       "match-42",
		PeerID:       peerID,
		PeerName:     peerID,
		Role:         role,
		BaseInterval: 10 * time.Millisecond,
		MaxInterval:  80 * time.Millisecond,
		HTTPClient:   srv.Client(),
		OnMessage:    onMessage,
	})
}

func TestClient_JoinAnnouncesToRelay(t *testing.T) {
	relay, srv := newRelayServer(t)

	client := testClient(srv, "lead-1", domain.RoleLead, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer client.Leave(context.Background())

	if !client.Connected() {
		t.Error("client should report connected after join")
	}
	if resp := relay.Poll("match-42", "probe"); !resp.Room.LeadConnected {
		t.Error("relay should list the lead after join")
	}
}

func TestClient_JoinFailsFastWhenRelayMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	client := testClient(srv, "lead-1", domain.RoleLead, nil)
	err := client.Join(context.Background())
	if !errors.Is(err, ErrRelayUnavailable) {
		t.Fatalf("expected ErrRelayUnavailable, got %v", err)
	}
	if client.Connected() {
		t.Error("failed join must not leave the client connected")
	}
}

func TestClient_ReceivesTargetedMessage(t *testing.T) {
	_, srv := newRelayServer(t)

	received := make(chan *domain.SignalingMessage, 4)
	scout := testClient(srv, "scout-1", domain.RoleScout, func(msg *domain.SignalingMessage) {
		received <- msg
	})
	lead := testClient(srv, "lead-1", domain.RoleLead, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := lead.Join(ctx); err != nil {
		t.Fatalf("lead join: %v", err)
	}
	defer lead.Leave(context.Background())
	if err := scout.Join(ctx); err != nil {
		t.Fatalf("scout join: %v", err)
	}
	defer scout.Leave(context.Background())

	if err := lead.Send(ctx, &domain.SignalingMessage{
		Type:         domain.SignalOffer,
		TargetPeerID: "scout-1",
		Data:         json.RawMessage(`{"sdp":"offer"}`),
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	scout.Wake()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-received:
			if msg.Type == domain.SignalOffer {
				if msg.PeerID != "lead-1" {
					t.Errorf("offer should carry the sender's peer id, got %s", msg.PeerID)
				}
				return
			}
		case <-deadline:
			t.Fatal("scout never received the offer")
		}
	}
}

func TestClient_LeaveStopsPolling(t *testing.T) {
	relay, srv := newRelayServer(t)

	client := testClient(srv, "scout-1", domain.RoleScout, nil)
	if err := client.Join(context.Background()); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := client.Leave(context.Background()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if client.Connected() {
		t.Error("client should report disconnected after leave")
	}
	if resp := relay.Poll("match-42", "probe"); resp.Room.ScoutCount != 0 {
		t.Errorf("relay should drop the scout on leave, count %d", resp.Room.ScoutCount)
	}

	// A second leave is a no-op, not an error.
	if err := client.Leave(context.Background()); err != nil {
		t.Errorf("redundant leave should be nil, got %v", err)
	}
}

func TestClient_QuietPollsBackOff(t *testing.T) {
	_, srv := newRelayServer(t)

	client := testClient(srv, "scout-1", domain.RoleScout, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer client.Leave(context.Background())

	base := client.cfg.BaseInterval
	eventually(t, 2*time.Second, func() bool {
		return client.currentInterval() > base
	}, "interval should grow while the room is quiet")

	eventually(t, 2*time.Second, func() bool {
		return client.currentInterval() == client.cfg.MaxInterval
	}, "interval should cap at the maximum")

	// Activity resets to the base cadence. Suspend first so no poll
	// lands between the reset and the assertion.
	client.Suspend()
	eventually(t, time.Second, func() bool {
		client.Wake()
		return client.currentInterval() == base
	}, "wake should reset the interval to base")
}

func TestClient_ErrorPollsBackOffHarder(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(&domain.SignalPostResponse{Success: true})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	client := testClient(failing, "scout-1", domain.RoleScout, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Join(ctx); err != nil {
		t.Fatalf("join should succeed, polling fails later: %v", err)
	}

	eventually(t, 2*time.Second, func() bool {
		return client.currentInterval() == client.cfg.MaxInterval
	}, "poll errors should drive the interval to the cap")

	cancel()
}

func TestClient_SuspendPausesPolling(t *testing.T) {
	_, srv := newRelayServer(t)

	client := testClient(srv, "scout-1", domain.RoleScout, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer client.Leave(context.Background())

	client.Suspend()
	eventually(t, time.Second, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return !client.inFlight
	}, "in-flight poll should drain after suspend")
	client.Wake()
	interval := client.currentInterval()

	// Suspended ticks are skipped entirely, so the interval never moves.
	time.Sleep(100 * time.Millisecond)
	if got := client.currentInterval(); got != interval {
		t.Errorf("suspended client adjusted its interval: %v -> %v", interval, got)
	}

	client.Resume()
	eventually(t, 2*time.Second, func() bool {
		return client.currentInterval() != interval || !client.Connected()
	}, "resume should restart polling")
}
