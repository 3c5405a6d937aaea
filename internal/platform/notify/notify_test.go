package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []Message
	fail bool
}

func (s *recordingSink) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
	if s.fail {
		return errors.New("smtp down")
	}
	return nil
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 8)
	d.Start()
	d.Notify(Message{Kind: KindAccountCreated, To: "a@cse.iith.ac.in"})
	d.Notify(Message{Kind: KindEquipmentIssued, To: "b@cse.iith.ac.in"})
	d.Close()

	require.Len(t, sink.got, 2)
	assert.Equal(t, KindAccountCreated, sink.got[0].Kind)
	assert.False(t, sink.got[0].CreatedAt.IsZero())
}

func TestDispatcherSwallowsSinkErrors(t *testing.T) {
	sink := &recordingSink{fail: true}
	d := NewDispatcher(sink, 1)
	d.Start()
	assert.NotPanics(t, func() { d.Notify(Message{Kind: KindPasswordReset}) })
	d.Close()
	assert.Len(t, sink.got, 1)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 1) // not started: nothing drains
	done := make(chan struct{})
	go func() {
		d.Notify(Message{Kind: KindEquipmentIssued})
		d.Notify(Message{Kind: KindEquipmentReturned})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Len(t, d.ch, 1)
}

func TestRedisSinkReportsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	s := NewRedisSink(rdb, "")
	assert.Equal(t, "lims:notifications", s.list)
	assert.Error(t, s.Send(context.Background(), Message{Kind: KindAccountCreated}))
}

func TestNewSink(t *testing.T) {
	s, closeFn, err := NewSink(Config{})
	require.NoError(t, err)
	assert.IsType(t, LogSink{}, s)
	assert.NoError(t, closeFn())

	_, _, err = NewSink(Config{Driver: "smtp"})
	assert.Error(t, err)
}
