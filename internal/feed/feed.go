package feed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// Filter selects which updates a stream receives. Exactly one of
// Program (account ownership) or Mentions (transaction include) must
// be set.
type Filter struct {
	Program    solana.PublicKey
	Mentions   solana.PublicKey
	DataSize   uint64 // optional account data-size filter
	Commitment rpc.CommitmentType
}

// AccountUpdate is a decoded-enough account notification: the owner
// program, lamports and raw data. Payload layout is the decoder's
// problem.
type AccountUpdate struct {
	Pubkey   solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
	Slot     uint64
}

// TransactionUpdate is a transaction notification for a watched
// program: signature, success flag and log lines. The subscription
// channel carries no block time, so ObservedAt is receipt time.
type TransactionUpdate struct {
	Signature  solana.Signature
	Failed     bool
	Logs       []string
	Slot       uint64
	ObservedAt time.Time
}

// Update is the tagged union delivered on a stream: exactly one of
// Account or Transaction is non-nil.
type Update struct {
	Account     *AccountUpdate
	Transaction *TransactionUpdate
}

// Client is the process-wide pool of feed subscriptions. It owns one
// websocket connection shared by all streams and guarantees at most
// one active stream per subscription id. Wire-level reconnects are the
// pool's job; consumers just re-acquire when their stream errors.
type Client struct {
	endpoint string

	mu      sync.Mutex
	conn    *ws.Client
	streams map[string]*Stream
	closed  bool

	backoffInitial time.Duration
	backoffMax     time.Duration
}

// NewClient builds the pool. The token, when non-empty, is appended to
// the endpoint as a query parameter the way hosted feed providers
// expect.
func NewClient(feedURL, token string, backoffInitial, backoffMax time.Duration) (*Client, error) {
	if backoffInitial <= 0 {
		backoffInitial = time.Second
	}
	if backoffMax <= 0 {
		backoffMax = 30 * time.Second
	}
	endpoint := feedURL
	if token != "" {
		u, err := url.Parse(feedURL)
		if err != nil {
			return nil, fmt.Errorf("invalid FEED_URL: %w", err)
		}
		q := u.Query()
		q.Set("api-key", token)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}
	return &Client{
		endpoint:       endpoint,
		streams:        make(map[string]*Stream),
		backoffInitial: backoffInitial,
		backoffMax:     backoffMax,
	}, nil
}

// Acquire opens (or replaces) the stream for subscriptionID and starts
// delivering updates matching the filter. The previous stream for the
// same id, if any, is closed first.
func (c *Client) Acquire(ctx context.Context, subscriptionID string, f Filter) (*Stream, error) {
	if f.Program.IsZero() && f.Mentions.IsZero() {
		return nil, fmt.Errorf("filter for %s selects nothing", subscriptionID)
	}
	if f.Commitment == "" {
		f.Commitment = rpc.CommitmentConfirmed
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("feed client is closed")
	}
	if prev, ok := c.streams[subscriptionID]; ok {
		prev.close()
	}
	s := &Stream{
		id:      subscriptionID,
		filter:  f,
		client:  c,
		updates: make(chan Update, 64),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	c.streams[subscriptionID] = s
	c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		c.drop(s)
		return nil, err
	}

	if err := s.subscribe(conn); err != nil {
		// A subscribe failure usually means the connection died between
		// dial and subscribe; reset it so the next Acquire redials.
		c.resetConn(conn)
		c.drop(s)
		return nil, fmt.Errorf("subscribe %s: %w", subscriptionID, err)
	}

	go s.run(ctx)
	return s, nil
}

// Release closes the stream with the given id, if any.
func (c *Client) Release(subscriptionID string) {
	c.mu.Lock()
	s, ok := c.streams[subscriptionID]
	c.mu.Unlock()
	if ok {
		s.close()
	}
}

// Close tears down every stream and the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	streams := make([]*Stream, 0, len(c.streams))
	for _, s := range c.streams {
		streams = append(streams, s)
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
	if conn != nil {
		conn.Close()
	}
}

// connect returns the shared connection, dialing with capped
// exponential backoff and jitter until ctx is cancelled.
func (c *Client) connect(ctx context.Context) (*ws.Client, error) {
	c.mu.Lock()
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		conn, err := ws.Connect(ctx, c.endpoint)
		if err == nil {
			c.mu.Lock()
			if c.conn == nil {
				c.conn = conn
			} else {
				// Lost the dial race; use the winner.
				conn.Close()
				conn = c.conn
			}
			c.mu.Unlock()
			return conn, nil
		}

		wait := Backoff(attempt, c.backoffInitial, c.backoffMax)
		log.Printf("[feed] connect failed (attempt %d): %v, retrying in %s", attempt+1, err, wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// resetConn discards the shared connection if it is still the one the
// caller saw fail.
func (c *Client) resetConn(failed *ws.Client) {
	c.mu.Lock()
	if c.conn == failed {
		c.conn = nil
	}
	c.mu.Unlock()
	failed.Close()
}

func (c *Client) drop(s *Stream) {
	c.mu.Lock()
	if cur, ok := c.streams[s.id]; ok && cur == s {
		delete(c.streams, s.id)
	}
	c.mu.Unlock()
}

// Backoff computes the reconnect delay for the given attempt: initial
// doubled per attempt, capped at max, with up to 25% positive jitter.
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	d := initial
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	d += jitter
	if d > max {
		d = max
	}
	return d
}
