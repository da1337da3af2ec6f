package mqtt

import (
	"context"
	"strings"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/notify"
)

// JSONPublisher is the part of Client the notice publisher needs.
type JSONPublisher interface {
	PublishJSON(topic string, data interface{}) error
	IsConnected() bool
}

// NoticePublisher forwards operator notices to the broker so pagers and
// ward sirens can react. Publishing happens on its own goroutine; Notify
// never blocks and drops notices when the queue is full.
type NoticePublisher struct {
	pub   JSONPublisher
	topic func() string
	queue chan notify.Notice
	log   *logger.Logger
}

// TopicFor fills "{id}" in a topic template.
func TopicFor(template, hospitalID string) string {
	return strings.ReplaceAll(template, "{id}", hospitalID)
}

func NewNoticePublisher(pub JSONPublisher, topic func() string, log *logger.Logger) *NoticePublisher {
	return &NoticePublisher{
		pub:   pub,
		topic: topic,
		queue: make(chan notify.Notice, 64),
		log:   log.With("mqtt"),
	}
}

func (p *NoticePublisher) Notify(n notify.Notice) {
	select {
	case p.queue <- n:
	default:
		p.log.Warn("Notice queue full, dropping %q", n.Title)
	}
}

// Run publishes queued notices until ctx is done.
func (p *NoticePublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-p.queue:
			if !p.pub.IsConnected() {
				p.log.Debug("Broker offline, notice %q not paged", n.Title)
				continue
			}
			if err := p.pub.PublishJSON(p.topic(), n); err != nil {
				p.log.Error("Paging notice failed: %v", err)
			}
		}
	}
}
