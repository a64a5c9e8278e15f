package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// Stream is one live subscription. Consumers read Updates() until it
// closes, then check Err() and re-acquire.
type Stream struct {
	id     string
	filter Filter
	client *Client

	programSub *ws.ProgramSubscription
	logsSub    *ws.LogSubscription

	updates chan Update
	errs    chan error

	closeOnce sync.Once
	done      chan struct{}
}

// Updates delivers account and transaction notifications in arrival
// order. The channel closes when the stream dies, whether by Release
// or by transport error.
func (s *Stream) Updates() <-chan Update {
	return s.updates
}

// Err reports the transport error that killed the stream, or nil after
// a clean Release.
func (s *Stream) Err() error {
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

// ID returns the subscription id the stream was acquired under.
func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) subscribe(conn *ws.Client) error {
	if !s.filter.Program.IsZero() {
		var filters []rpc.RPCFilter
		if s.filter.DataSize > 0 {
			filters = append(filters, rpc.RPCFilter{DataSize: s.filter.DataSize})
		}
		sub, err := conn.ProgramSubscribeWithOpts(
			s.filter.Program,
			s.filter.Commitment,
			solana.EncodingBase64,
			filters,
		)
		if err != nil {
			return err
		}
		s.programSub = sub
		return nil
	}

	sub, err := conn.LogsSubscribeMentions(s.filter.Mentions, s.filter.Commitment)
	if err != nil {
		return err
	}
	s.logsSub = sub
	return nil
}

// run pumps notifications into the updates channel until the
// subscription errors or the stream is closed.
func (s *Stream) run(ctx context.Context) {
	defer func() {
		s.client.drop(s)
		s.unsubscribe()
		close(s.updates)
	}()

	if s.programSub != nil {
		s.pumpAccounts(ctx)
		return
	}
	s.pumpLogs(ctx)
}

func (s *Stream) pumpAccounts(ctx context.Context) {
	for {
		got, err := s.programSub.Recv()
		if err != nil {
			s.fail(err)
			return
		}
		if got == nil {
			continue
		}
		data := got.Value.Account.Data.GetBinary()
		u := Update{Account: &AccountUpdate{
			Pubkey:   got.Value.Pubkey,
			Owner:    got.Value.Account.Owner,
			Lamports: got.Value.Account.Lamports,
			Data:     data,
			Slot:     got.Context.Slot,
		}}
		if !s.deliver(ctx, u) {
			return
		}
	}
}

func (s *Stream) pumpLogs(ctx context.Context) {
	for {
		got, err := s.logsSub.Recv()
		if err != nil {
			s.fail(err)
			return
		}
		if got == nil {
			continue
		}
		u := Update{Transaction: &TransactionUpdate{
			Signature:  got.Value.Signature,
			Failed:     got.Value.Err != nil,
			Logs:       got.Value.Logs,
			Slot:       got.Context.Slot,
			ObservedAt: time.Now().UTC(),
		}}
		if !s.deliver(ctx, u) {
			return
		}
	}
}

// deliver pushes one update, preferring drop-the-stream over blocking
// forever on a dead consumer.
func (s *Stream) deliver(ctx context.Context, u Update) bool {
	select {
	case s.updates <- u:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		s.fail(ctx.Err())
		return false
	}
}

func (s *Stream) fail(err error) {
	select {
	case <-s.done:
		// Released; the error is expected noise from the teardown.
	default:
		select {
		case s.errs <- fmt.Errorf("stream %s: %w", s.id, err):
		default:
		}
	}
}

func (s *Stream) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.unsubscribe()
	})
}

func (s *Stream) unsubscribe() {
	if s.programSub != nil {
		s.programSub.Unsubscribe()
	}
	if s.logsSub != nil {
		s.logsSub.Unsubscribe()
	}
}
