package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer publishes booking and payment lifecycle notifications.
type Producer interface {
	PublishBookingConfirmed(ctx context.Context, userID uuid.UUID, bookingRef string, seatCount int, totalPrice float64) error
	PublishBookingCancelled(ctx context.Context, userID uuid.UUID, bookingRef string) error
	PublishPaymentReceipt(ctx context.Context, userID uuid.UUID, email, reference string, amount float64, currency string) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka producer
type KafkaProducerConfig struct {
	Brokers           []string
	NotificationTopic string
	RetryMax          int
	TimeoutMs         int
	RequiredAcks      sarama.RequiredAcks
	CompressionType   sarama.CompressionCodec
	IdempotentWrites  bool
	MaxMessageBytes   int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:           []string{"localhost:9092"},
		NotificationTopic: "notifications",
		RetryMax:          3,
		TimeoutMs:         10000,
		RequiredAcks:      sarama.WaitForAll,
		CompressionType:   sarama.CompressionSnappy,
		IdempotentWrites:  true,
		MaxMessageBytes:   1000000, // 1MB
	}
}

// KafkaProducer publishes notifications to Kafka with a sync producer.
type KafkaProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaProducer creates a new Kafka notification producer
func NewKafkaProducer(config *KafkaProducerConfig) (*KafkaProducer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps per-recipient ordering
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaProducer{
		producer: producer,
		config:   config,
	}, nil
}

func (kp *KafkaProducer) PublishBookingConfirmed(ctx context.Context, userID uuid.UUID, bookingRef string, seatCount int, totalPrice float64) error {
	notification := NewNotification(
		NotificationTypeBookingConfirmed,
		userID,
		"",
		fmt.Sprintf("Booking %s confirmed", bookingRef),
		map[string]interface{}{
			"booking_ref": bookingRef,
			"seat_count":  seatCount,
			"total_price": totalPrice,
		},
	)
	return kp.publish(notification)
}

func (kp *KafkaProducer) PublishBookingCancelled(ctx context.Context, userID uuid.UUID, bookingRef string) error {
	notification := NewNotification(
		NotificationTypeBookingCancelled,
		userID,
		"",
		fmt.Sprintf("Booking %s cancelled", bookingRef),
		map[string]interface{}{
			"booking_ref": bookingRef,
		},
	)
	return kp.publish(notification)
}

func (kp *KafkaProducer) PublishPaymentReceipt(ctx context.Context, userID uuid.UUID, email, reference string, amount float64, currency string) error {
	notification := NewNotification(
		NotificationTypePaymentReceipt,
		userID,
		email,
		"Payment received",
		map[string]interface{}{
			"transaction_reference": reference,
			"amount":                amount,
			"currency":              currency,
		},
	)
	return kp.publish(notification)
}

func (kp *KafkaProducer) publish(notification *Notification) error {
	messageBytes, err := notification.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kp.config.NotificationTopic,
		Key:       sarama.StringEncoder(notification.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   kp.createHeaders(notification),
		Timestamp: notification.CreatedAt,
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		notification.Status = NotificationStatusFailed
		return fmt.Errorf("failed to send notification to Kafka: %w", err)
	}

	log.Printf("Notification published - Topic: %s, Partition: %d, Offset: %d, Type: %s",
		kp.config.NotificationTopic, partition, offset, notification.Type)

	return nil
}

func (kp *KafkaProducer) createHeaders(notification *Notification) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(notification.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(notification.Type)},
		{Key: []byte("recipient_id"), Value: []byte(notification.RecipientID.String())},
		{Key: []byte("producer"), Value: []byte("trekka-notifications")},
		{Key: []byte("created_at"), Value: []byte(notification.CreatedAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (kp *KafkaProducer) Close() error {
	if kp.producer != nil {
		if err := kp.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}
