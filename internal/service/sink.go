package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
)

// ── 投递通道 ──

// ErrSinkSkipped 该通道不适用于本条提醒（如无联系邮箱）
var ErrSinkSkipped = errors.New("投递通道跳过")

// Sink 投递通道接口；站内、邮件、消息队列均实现该接口
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}

// ReminderEvent 对外推送的提醒事件
type ReminderEvent struct {
	NotificationID string `json:"notification_id"`
	ChildID        string `json:"child_id"`
	VaccineCode    string `json:"vaccine_code"`
	DueDate        string `json:"due_date"`
	Message        string `json:"message"`
	CreatedAt      string `json:"created_at"`
}

func newReminderEvent(d Delivery) ReminderEvent {
	n := d.Notification
	return ReminderEvent{
		NotificationID: n.NotificationID,
		ChildID:        n.ChildID,
		VaccineCode:    n.VaccineCode,
		DueDate:        n.DueDate.String(),
		Message:        n.Message,
		CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func deliveryError(sink string, err error) error {
	return fmt.Errorf("%s: %w: %w", sink, pkgerrors.ErrDelivery, err)
}

// ── 站内通道 ──

// JSONPublisher 发布 JSON 消息到频道（redis pub/sub）
type JSONPublisher interface {
	PublishJSON(ctx context.Context, channel string, payload interface{}) error
}

// InAppSink 站内实时推送；站内列表本身由 notifications 表提供
type InAppSink struct {
	pub JSONPublisher
}

func NewInAppSink(pub JSONPublisher) *InAppSink {
	return &InAppSink{pub: pub}
}

func (s *InAppSink) Name() string { return "inapp" }

// InAppChannel 儿童提醒频道名
func InAppChannel(childID string) string {
	return "notifications:child:" + childID
}

func (s *InAppSink) Deliver(ctx context.Context, d Delivery) error {
	if err := s.pub.PublishJSON(ctx, InAppChannel(d.Notification.ChildID), newReminderEvent(d)); err != nil {
		return deliveryError(s.Name(), err)
	}
	return nil
}

// ── 邮件通道 ──

// MailSender 邮件发送
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailSink 发送提醒邮件到儿童联系邮箱
type EmailSink struct {
	sender MailSender
}

func NewEmailSink(sender MailSender) *EmailSink {
	return &EmailSink{sender: sender}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, d Delivery) error {
	if d.ContactEmail == "" {
		return ErrSinkSkipped
	}
	subject := fmt.Sprintf("Vaccination reminder: %s", d.Notification.VaccineCode)
	if err := s.sender.Send(ctx, d.ContactEmail, subject, d.Notification.Message); err != nil {
		return deliveryError(s.Name(), err)
	}
	return nil
}

// ── 消息队列通道 ──

// EventPublisher 按路由键发布事件（RabbitMQ）
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BrokerSink 推送到消息队列，供移动端推送等下游服务消费
type BrokerSink struct {
	pub        EventPublisher
	routingKey string
}

func NewBrokerSink(pub EventPublisher, routingKey string) *BrokerSink {
	if routingKey == "" {
		routingKey = "immunization.reminder"
	}
	return &BrokerSink{pub: pub, routingKey: routingKey}
}

func (s *BrokerSink) Name() string { return "mq" }

func (s *BrokerSink) Deliver(ctx context.Context, d Delivery) error {
	if err := s.pub.Publish(ctx, s.routingKey, newReminderEvent(d)); err != nil {
		return deliveryError(s.Name(), err)
	}
	return nil
}
