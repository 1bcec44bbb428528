package queue

import (
	"context"

	"github.com/IBM/sarama"
)

// KafkaQueue Kafka-backed queue implementation
type KafkaQueue struct {
	producer sarama.SyncProducer
	consumer sarama.Consumer
	brokers  []string
	groupID  string
	closed   bool
}

// KafkaQueueConfig Kafka queue configuration
type KafkaQueueConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
}

// NewKafkaQueue creates a Kafka queue. The producer waits for all in-sync
// replicas to acknowledge each message.
func NewKafkaQueue(config *KafkaQueueConfig) (*KafkaQueue, error) {
	if config == nil || len(config.Brokers) == 0 {
		return nil, ErrInvalidConfiguration
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	consumer, err := sarama.NewConsumer(config.Brokers, saramaConfig)
	if err != nil {
		producer.Close()
		return nil, err
	}

	return &KafkaQueue{
		producer: producer,
		consumer: consumer,
		brokers:  config.Brokers,
		groupID:  config.GroupID,
	}, nil
}

// Publish publishes a message to the specified topic
func (kq *KafkaQueue) Publish(ctx context.Context, topic string, message []byte) error {
	if kq.closed {
		return ErrQueueClosed
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(message),
	}

	_, _, err := kq.producer.SendMessage(msg)
	return err
}

// Subscribe subscribes to messages from the specified topic. Each partition
// is consumed in its own goroutine until ctx is cancelled.
func (kq *KafkaQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	if kq.closed {
		return ErrQueueClosed
	}

	partitions, err := kq.consumer.Partitions(topic)
	if err != nil {
		return err
	}

	for _, partition := range partitions {
		pc, err := kq.consumer.ConsumePartition(topic, partition, sarama.OffsetNewest)
		if err != nil {
			return err
		}

		go func(pc sarama.PartitionConsumer) {
			defer pc.Close()
			for {
				select {
				case msg, ok := <-pc.Messages():
					if !ok {
						return
					}
					if err := handler(ctx, topic, msg.Value); err != nil {
						// Handler errors are not retried here
						continue
					}
				case <-ctx.Done():
					return
				}
			}
		}(pc)
	}

	return nil
}

// Close closes the queue connections
func (kq *KafkaQueue) Close() error {
	if kq.closed {
		return nil
	}
	kq.closed = true

	if err := kq.producer.Close(); err != nil {
		kq.consumer.Close()
		return err
	}
	return kq.consumer.Close()
}

// Health checks the health of the queue
func (kq *KafkaQueue) Health() error {
	if kq.closed {
		return ErrQueueClosed
	}
	return nil
}
