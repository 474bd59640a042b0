package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"scout-sync-server/internal/domain"
)

// ErrRelayUnavailable means the relay endpoint itself is missing —
// usually a deploy misconfiguration, not a transient outage — and is
// surfaced distinctly from ordinary network errors.
var ErrRelayUnavailable = errors.New("signaling relay unavailable")

const (
	DefaultBaseInterval = 2 * time.Second
	DefaultMaxInterval  = 15 * time.Second

	quietBackoffFactor = 1.5
	errorBackoffFactor = 2.0
)

type ClientConfig struct {
	BaseURL  string
	RoomID   string
	PeerID   string
	PeerName string
	Role     domain.PeerRole

	BaseInterval time.Duration
	MaxInterval  time.Duration

	HTTPClient *http.Client

	// OnMessage receives every delivered message. Called from the poll
	// goroutine; keep it fast.
	OnMessage func(*domain.SignalingMessage)
	// OnRoomStatus receives the room summary from each poll.
	OnRoomStatus func(domain.RoomStatus)
}

// Client polls the relay on an adaptive interval: responsive right
// after activity, quiet during idle stretches. It is an explicit
// session object — Join starts the loop, Leave or context cancellation
// stops it — rather than a tangle of callbacks over shared refs.
type Client struct {
	cfg  ClientConfig
	http *http.Client

	mu        sync.Mutex
	connected bool
	suspended bool
	inFlight  bool
	interval  time.Duration

	wake   chan struct{}
	cancel context.CancelFunc
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = DefaultBaseInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:      cfg,
		http:     httpClient,
		interval: cfg.BaseInterval,
		wake:     make(chan struct{}, 1),
	}
}

// Join probes the relay with a ping first, so "relay unavailable" can
// be told apart from "relay reachable but room empty", then announces
// itself and starts the poll loop.
func (c *Client) Join(ctx context.Context) error {
	if err := c.post(ctx, &domain.SignalingMessage{Type: domain.SignalPing}); err != nil {
		return fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}

	join := &domain.SignalingMessage{
		Type:     domain.SignalJoin,
		RoomID:   c.cfg.RoomID,
		PeerID:   c.cfg.PeerID,
		PeerName: c.cfg.PeerName,
		Role:     c.cfg.Role,
	}
	if err := c.post(ctx, join); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.connected = true
	c.interval = c.cfg.BaseInterval
	c.cancel = cancel
	c.mu.Unlock()

	go c.loop(loopCtx)
	return nil
}

// Leave announces departure and stops the poll loop. Only called on a
// real teardown (sync disabled, room changed), never on transient
// re-renders of the owner.
func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	return c.post(ctx, &domain.SignalingMessage{
		Type:   domain.SignalLeave,
		RoomID: c.cfg.RoomID,
		PeerID: c.cfg.PeerID,
		Role:   c.cfg.Role,
	})
}

// Send posts an outbound message stamped with this client's room and
// peer identity.
func (c *Client) Send(ctx context.Context, msg *domain.SignalingMessage) error {
	msg.RoomID = c.cfg.RoomID
	msg.PeerID = c.cfg.PeerID
	msg.Role = c.cfg.Role
	return c.post(ctx, msg)
}

// Wake resets the interval to base and forces an out-of-band poll: the
// tab-focus / back-online recovery path.
func (c *Client) Wake() {
	c.mu.Lock()
	c.interval = c.cfg.BaseInterval
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Suspend pauses polling without leaving the room (document hidden,
// network offline). Resume picks polling back up immediately.
func (c *Client) Suspend() {
	c.mu.Lock()
	c.suspended = true
	c.mu.Unlock()
}

func (c *Client) Resume() {
	c.mu.Lock()
	c.suspended = false
	c.mu.Unlock()
	c.Wake()
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) loop(ctx context.Context) {
	timer := time.NewTimer(c.currentInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-c.wake:
		}

		c.maybePoll(ctx)
		timer.Reset(c.currentInterval())
	}
}

// maybePoll skips the tick when suspended or when the previous poll is
// still in flight, so a slow network never stacks concurrent requests.
func (c *Client) maybePoll(ctx context.Context) {
	c.mu.Lock()
	if !c.connected || c.suspended || c.inFlight {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	go func() {
		n, err := c.poll(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.inFlight = false

		switch {
		case err != nil:
			// Errors back off harder than quiet periods, but polling
			// never stops while connected: flaky networks self-heal.
			if ctx.Err() == nil {
				log.Printf("[signaling] poll failed for room %s: %v", c.cfg.RoomID, err)
			}
			c.interval = clampInterval(time.Duration(float64(c.interval)*errorBackoffFactor), c.cfg.MaxInterval)
		case n > 0:
			c.interval = c.cfg.BaseInterval
		default:
			c.interval = clampInterval(time.Duration(float64(c.interval)*quietBackoffFactor), c.cfg.MaxInterval)
		}
	}()
}

func (c *Client) currentInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func clampInterval(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

func (c *Client) poll(ctx context.Context) (int, error) {
	endpoint := fmt.Sprintf("%s/signal?roomId=%s&peerId=%s",
		c.cfg.BaseURL,
		url.QueryEscape(c.cfg.RoomID),
		url.QueryEscape(c.cfg.PeerID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("poll failed with status %d", resp.StatusCode)
	}

	var pollResp domain.SignalPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pollResp); err != nil {
		return 0, err
	}

	if c.cfg.OnRoomStatus != nil {
		c.cfg.OnRoomStatus(pollResp.Room)
	}
	for _, msg := range pollResp.Messages {
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg)
		}
	}

	return len(pollResp.Messages), nil
}

func (c *Client) post(ctx context.Context, msg *domain.SignalingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/signal", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("signal post failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}
