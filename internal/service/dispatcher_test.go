package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
)

type recordingSink struct {
	name string
	ch   chan Delivery
}

func newRecordingSink(name string) *recordingSink {
	return &recordingSink{name: name, ch: make(chan Delivery, 64)}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, d Delivery) error {
	s.ch <- d
	return nil
}

type failingSink struct {
	calls atomic.Int32
}

func (s *failingSink) Name() string { return "broken" }

func (s *failingSink) Deliver(_ context.Context, _ Delivery) error {
	s.calls.Add(1)
	return errors.New("sink down")
}

func testDelivery(i int) Delivery {
	return Delivery{Notification: model.Notification{
		NotificationID: fmt.Sprintf("n-%d", i),
		ChildID:        "c1",
		VaccineCode:    "BCG",
		DueDate:        model.NewDate(2024, 1, 15),
	}}
}

func TestDispatcher_FailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &failingSink{}
	ok := newRecordingSink("ok")
	d := NewDispatcher([]Sink{broken, ok}, 2, 16, zap.NewNop())
	d.Start()

	for i := 0; i < 5; i++ {
		if err := d.Enqueue(testDelivery(i)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(ok.ch) != 5 {
		t.Fatalf("正常通道应收到 5 条, 实际 %d", len(ok.ch))
	}
	if broken.calls.Load() != 5 {
		t.Fatalf("故障通道应被调用 5 次, 实际 %d", broken.calls.Load())
	}
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	sink := newRecordingSink("ok")
	d := NewDispatcher([]Sink{sink}, 1, 10, zap.NewNop())
	for i := 0; i < 10; i++ {
		if err := d.Enqueue(testDelivery(i)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	d.Start()
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(sink.ch) != 10 {
		t.Fatalf("停止前应排空队列, 实际投递 %d", len(sink.ch))
	}
}

func TestDispatcher_QueueFullIsNonBlocking(t *testing.T) {
	d := NewDispatcher([]Sink{newRecordingSink("ok")}, 1, 1, zap.NewNop())
	if err := d.Enqueue(testDelivery(1)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.Enqueue(testDelivery(2)) }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) || !errors.Is(err, pkgerrors.ErrDelivery) {
			t.Fatalf("期望 ErrQueueFull, 实际: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("队列满时 Enqueue 不应阻塞")
	}
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(nil, 1, 1, zap.NewNop())
	d.Start()
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := d.Enqueue(testDelivery(1)); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("期望 ErrDispatcherClosed, 实际: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("重复 Stop 应无副作用: %v", err)
	}
}
