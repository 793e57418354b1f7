package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/dusk-indust/bizdoc/internal/config"
	"github.com/dusk-indust/bizdoc/internal/orchestrator"
)

const runKeyPrefix = "bizdoc:run:"

// Compile-time check.
var _ Store = (*ValkeyStore)(nil)

// NewValkeyClient connects to Valkey and verifies the connection with PING.
func NewValkeyClient(cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	resp := client.Do(context.Background(), client.B().Ping().Build())
	if err := resp.Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return client, nil
}

// ValkeyStore keeps each run as a JSON value under bizdoc:run:{id} and its
// events as a list under bizdoc:run:{id}:events. Both keys expire after ttl.
// An event's Seq is its index in the list, so concurrent appends never share
// a sequence number.
//
// Status updates are read-modify-write. A run is only ever written by the
// goroutine executing it, so no locking is needed.
type ValkeyStore struct {
	client valkey.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewValkeyStore creates a store backed by client. A non-positive ttl
// defaults to 24 hours.
func NewValkeyStore(client valkey.Client, ttl time.Duration) *ValkeyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ValkeyStore{client: client, ttl: ttl, now: time.Now}
}

// listEvent is the stored form of an Event; Seq is derived from list position.
type listEvent struct {
	At time.Time `json:"at"`
	orchestrator.ProgressEvent
}

func runKey(id uuid.UUID) string    { return runKeyPrefix + id.String() }
func eventsKey(id uuid.UUID) string { return runKeyPrefix + id.String() + ":events" }

func (s *ValkeyStore) Create(ctx context.Context, in orchestrator.Input) (*Run, error) {
	r := newRun(in, s.now())
	if err := s.save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ValkeyStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(runKey(id)).Build())
	data, err := resp.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &r, nil
}

func (s *ValkeyStore) AppendEvent(ctx context.Context, id uuid.UUID, ev orchestrator.ProgressEvent) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	key := eventsKey(id)
	data, err := json.Marshal(listEvent{At: now, ProgressEvent: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	for _, resp := range s.client.DoMulti(ctx,
		s.client.B().Rpush().Key(key).Element(string(data)).Build(),
		s.client.B().Expire().Key(key).Seconds(int64(s.ttl/time.Second)).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("append event for run %s: %w", id, err)
		}
	}

	prevStatus, prevPhase := r.Status, r.Phase
	r.observe(ev, now)
	if r.Status == prevStatus && r.Phase == prevPhase {
		return nil
	}
	return s.save(ctx, r)
}

func (s *ValkeyStore) Complete(ctx context.Context, id uuid.UUID, res *orchestrator.Result) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	r.complete(res, s.now())
	return s.save(ctx, r)
}

func (s *ValkeyStore) Fail(ctx context.Context, id uuid.UUID, runErr error) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	r.fail(runErr, s.now())
	return s.save(ctx, r)
}

func (s *ValkeyStore) Events(ctx context.Context, id uuid.UUID, from int) ([]Event, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}

	resp := s.client.Do(ctx, s.client.B().Lrange().Key(eventsKey(id)).Start(int64(from)).Stop(-1).Build())
	items, err := resp.AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load events for run %s: %w", id, err)
	}

	out := make([]Event, 0, len(items))
	for i, item := range items {
		var ev listEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode event for run %s: %w", id, err)
		}
		out = append(out, Event{Seq: from + i, At: ev.At, ProgressEvent: ev.ProgressEvent})
	}
	return out, nil
}

func (s *ValkeyStore) save(ctx context.Context, r *Run) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	resp := s.client.Do(ctx, s.client.B().Set().Key(runKey(r.ID)).Value(string(data)).Ex(s.ttl).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}
