package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/config"
)

// SendFunc 与 smtp.SendMail 签名一致，便于测试替换
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer SMTP 邮件发送器，按配置速率限流
type Mailer struct {
	host     string
	port     int
	from     string
	username string
	password string
	limiter  *rate.Limiter
	send     SendFunc
}

// New 创建 Mailer；rate_per_second <= 0 时不限流
func New(cfg *config.MailConfig) *Mailer {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		limiter:  rate.NewLimiter(limit, 1),
		send:     smtp.SendMail,
	}
}

// WithSendFunc 替换底层发送函数
func (m *Mailer) WithSendFunc(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

// Send 发送纯文本邮件；等待限流令牌时响应 ctx 取消
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := buildMessage(m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return m.send(addr, auth, m.from, []string{to}, msg)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
