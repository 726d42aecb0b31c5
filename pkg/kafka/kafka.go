package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/IBM/sarama"

	"goim-friend/pkg/logger"
)

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("kafka producer closed")

// Producer 生产者
type Producer struct {
	asyncProducer sarama.AsyncProducer
	logger        logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewConfig 生产者配置，按key哈希分区保证同一用户的事件有序
func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Partitioner = sarama.NewHashPartitioner
	return config
}

// InitProducer 初始化生产者
func InitProducer(brokers []string, log logger.Logger) (*Producer, error) {
	producer, err := sarama.NewAsyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, err
	}
	return NewProducer(producer, log), nil
}

// NewProducer 包装已有的AsyncProducer并启动结果回收协程
func NewProducer(ap sarama.AsyncProducer, log logger.Logger) *Producer {
	p := &Producer{asyncProducer: ap, logger: log}
	p.wg.Add(2)
	go p.drainSuccesses()
	go p.drainErrors()
	return p
}

func (p *Producer) drainSuccesses() {
	defer p.wg.Done()
	for msg := range p.asyncProducer.Successes() {
		p.logger.Debug(context.Background(), "Kafka message delivered",
			logger.F("topic", msg.Topic),
			logger.F("partition", msg.Partition),
			logger.F("offset", msg.Offset))
	}
}

func (p *Producer) drainErrors() {
	defer p.wg.Done()
	for perr := range p.asyncProducer.Errors() {
		p.logger.Error(context.Background(), "Kafka message delivery failed",
			logger.F("topic", perr.Msg.Topic),
			logger.F("error", perr.Err.Error()))
	}
}

// SendMessage 发送消息
func (p *Producer) SendMessage(topic string, key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	p.asyncProducer.Input() <- msg
	return nil
}

// Close 关闭生产者，等待在途消息的结果回收完毕
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.asyncProducer.Close()
	p.wg.Wait()
	return err
}
