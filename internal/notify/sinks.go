package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timebank/internal/logging"
	"timebank/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// LogSink writes every event to the log.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: logging.New()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, event Event) error {
	s.logger.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"action":      event.Action,
		"user_id":     event.UserID,
		"date":        event.Date,
		"total_horas": event.Record.TotalHoras,
	}).Info("Clock record updated")
	return nil
}

// MessageSender is satisfied by *tgbotapi.BotAPI.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserLookup resolves the chat of the record owner.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// TelegramSink messages the owner of the record.
type TelegramSink struct {
	sender MessageSender
	users  UserLookup
}

func NewTelegramSink(sender MessageSender, users UserLookup) *TelegramSink {
	return &TelegramSink{sender: sender, users: users}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, event Event) error {
	user, err := s.users.GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("lookup user %d: %w", event.UserID, err)
	}
	if user == nil || user.ChatID == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(user.ChatID, FormatEvent(event))
	if _, err := s.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatEvent renders the short message sent to the record owner.
func FormatEvent(event Event) string {
	r := event.Record
	text := fmt.Sprintf("🕒 %s updated (%s)\n⏰ Worked: %s\n☕ Breaks: %s",
		r.Date, event.Action, r.TotalHoras, r.TotalPausas)
	if r.HasJustification() {
		text += fmt.Sprintf("\n📝 Justification: %s", r.Justification.Status)
	}
	return text
}

// AMQPPublisher is satisfied by *amqp091.Channel.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPSink publishes events as persistent JSON messages.
type AMQPSink struct {
	conn       *amqp091.Connection
	channel    AMQPPublisher
	exchange   string
	routingKey string
}

// DialAMQPSink connects and declares a durable topic exchange.
func DialAMQPSink(url, exchange, routingKey string) (*AMQPSink, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	sink := NewAMQPSink(channel, exchange, routingKey)
	sink.conn = conn
	return sink, nil
}

func NewAMQPSink(channel AMQPPublisher, exchange, routingKey string) *AMQPSink {
	return &AMQPSink{
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, event Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.channel.PublishWithContext(
		ctx,
		s.exchange,   // exchange
		s.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID.String(),
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// KafkaWriter is satisfied by *kafka.Writer.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events keyed by record id, so one record's events stay ordered.
type KafkaSink struct {
	mu     sync.Mutex
	writer KafkaWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func NewKafkaSink(writer KafkaWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, event Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Record.ID),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
