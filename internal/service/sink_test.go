package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
)

type mockJSONPublisher struct {
	channel string
	payload interface{}
	err     error
}

func (m *mockJSONPublisher) PublishJSON(_ context.Context, channel string, payload interface{}) error {
	m.channel, m.payload = channel, payload
	return m.err
}

type mockMailSender struct {
	to, subject, body string
	calls             int
}

func (m *mockMailSender) Send(_ context.Context, to, subject, body string) error {
	m.calls++
	m.to, m.subject, m.body = to, subject, body
	return nil
}

type mockEventPublisher struct {
	routingKey string
	payload    any
}

func (m *mockEventPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	m.routingKey, m.payload = routingKey, payload
	return nil
}

func sampleDelivery(email string) Delivery {
	return Delivery{
		Notification: model.Notification{
			NotificationID: "n-1",
			ChildID:        "c1",
			VaccineCode:    "BCG",
			DueDate:        model.NewDate(2024, 1, 15),
			Message:        "Reminder: Nimal has a BCG vaccination scheduled for 2024-01-15",
		},
		ChildName:    "Nimal",
		ContactEmail: email,
	}
}

func TestInAppSink_PublishesToChildChannel(t *testing.T) {
	pub := &mockJSONPublisher{}
	sink := NewInAppSink(pub)
	if err := sink.Deliver(context.Background(), sampleDelivery("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.channel != "notifications:child:c1" {
		t.Fatalf("频道错误: %s", pub.channel)
	}
	b, _ := json.Marshal(pub.payload)
	var ev ReminderEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.DueDate != "2024-01-15" || ev.VaccineCode != "BCG" {
		t.Errorf("事件内容错误: %+v", ev)
	}
}

func TestInAppSink_ErrorIsDeliveryKind(t *testing.T) {
	sink := NewInAppSink(&mockJSONPublisher{err: errors.New("redis down")})
	err := sink.Deliver(context.Background(), sampleDelivery(""))
	if pkgerrors.Kind(err) != pkgerrors.KindDelivery {
		t.Fatalf("期望 delivery, 实际: %v", err)
	}
}

func TestEmailSink_SkipsWithoutAddress(t *testing.T) {
	sender := &mockMailSender{}
	sink := NewEmailSink(sender)
	if err := sink.Deliver(context.Background(), sampleDelivery("")); !errors.Is(err, ErrSinkSkipped) {
		t.Fatalf("无邮箱应跳过, 实际: %v", err)
	}
	if sender.calls != 0 {
		t.Fatal("不应发送邮件")
	}

	if err := sink.Deliver(context.Background(), sampleDelivery("parent@example.com")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.to != "parent@example.com" || sender.subject != "Vaccination reminder: BCG" {
		t.Errorf("邮件内容错误: %+v", sender)
	}
}

func TestBrokerSink_DefaultRoutingKey(t *testing.T) {
	pub := &mockEventPublisher{}
	sink := NewBrokerSink(pub, "")
	if err := sink.Deliver(context.Background(), sampleDelivery("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.routingKey != "immunization.reminder" {
		t.Fatalf("路由键错误: %s", pub.routingKey)
	}
	if _, ok := pub.payload.(ReminderEvent); !ok {
		t.Fatalf("payload 类型错误: %T", pub.payload)
	}
}
