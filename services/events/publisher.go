package events

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/customeros/lexsync/dto"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/internal/utils"
)

const (
	ExchangeDeadLetter = "lexsync-dead-letter"

	QueueVouchers = "lexsync-vouchers"
	DLQVouchers   = QueueVouchers + "-dlq"

	RoutingKeyDeadLetter      = "dead-letter"
	RoutingKeyVoucherUploaded = "voucher.uploaded"

	EntityTypeImportedPdf = "imported_pdf"
	AppSource             = "lexsync"

	// Default configurations
	DefaultMessageTTL          = 240 * time.Hour // after TTL message moves to DLQ
	DefaultMaxRetries          = 3
	DefaultPublishTimeout      = 5 * time.Second
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

type PublisherConfig struct {
	Exchange            string
	MessageTTL          time.Duration
	MaxRetries          int
	PublishTimeout      time.Duration
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

func DefaultPublisherConfig(exchange string) *PublisherConfig {
	return &PublisherConfig{
		Exchange:            exchange,
		MessageTTL:          DefaultMessageTTL,
		MaxRetries:          DefaultMaxRetries,
		PublishTimeout:      DefaultPublishTimeout,
		ReconnectBackoff:    DefaultReconnectBackoff,
		MaxReconnectBackoff: DefaultMaxReconnectBackoff,
	}
}

type RabbitMQPublisher struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	url             string
	logger          logger.Logger
	confirms        chan amqp091.Confirmation
	config          PublisherConfig
	closed          chan struct{}
}

func NewRabbitMQPublisher(rabbitmqURL string, logger logger.Logger, config *PublisherConfig) (*RabbitMQPublisher, error) {
	if config == nil {
		config = DefaultPublisherConfig(AppSource)
	}

	publisher := &RabbitMQPublisher{
		url:    rabbitmqURL,
		logger: logger,
		config: *config,
		closed: make(chan struct{}),
	}

	err := publisher.connect()
	if err != nil {
		return nil, err
	}

	return publisher, nil
}

func (r *RabbitMQPublisher) PublishVoucherUploaded(ctx context.Context, event dto.VoucherUploaded) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishVoucherUploaded")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, event.PdfID)

	envelope := NewEventEnvelope(span, event.PdfID, EntityTypeImportedPdf, event)
	err := r.publishMessageOnExchange(ctx, envelope, r.config.Exchange, RoutingKeyVoucherUploaded)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// NewEventEnvelope wraps message with the event id, its type name and the trace id of span.
func NewEventEnvelope(span opentracing.Span, entityId, entityType string, message any) dto.Event {
	tracingData := tracing.ExtractTextMapCarrier(span.Context())

	messageType := reflect.TypeOf(message)
	if messageType.Kind() == reflect.Ptr {
		messageType = messageType.Elem()
	}

	return dto.Event{
		Event: dto.EventDetails{
			Id:         utils.GenerateNanoIDWithPrefix("event", 21),
			EntityId:   entityId,
			EntityType: entityType,
			EventType:  messageType.Name(),
			Data:       message,
		},
		Metadata: dto.EventMetadata{
			UberTraceId: tracingData["uber-trace-id"],
			AppSource:   AppSource,
			Timestamp:   utils.Now().Format(time.RFC3339),
		},
	}
}

func (r *RabbitMQPublisher) setupPublishChannel() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "Failed to open publish channel")
	}

	// Enable publisher confirms
	err = channel.Confirm(false)
	if err != nil {
		channel.Close()
		return errors.Wrap(err, "Failed to enable publisher confirms")
	}

	r.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQPublisher) handleReconnection(connection *amqp091.Connection) {
	backoff := r.config.ReconnectBackoff

	notifyClose := connection.NotifyClose(make(chan *amqp091.Error, 1))
	select {
	case <-r.closed:
		return
	case err, ok := <-notifyClose:
		if !ok || err == nil {
			// graceful close
			return
		}
		r.logger.Warnf("RabbitMQ connection closed: %v, attempting to reconnect", err)
	}

	for {
		err := r.connect()
		if err == nil {
			r.logger.Info("Successfully reconnected to RabbitMQ")
			return
		}

		r.logger.Errorf("Failed to reconnect: %v, retrying in %v", err, backoff)
		select {
		case <-r.closed:
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > r.config.MaxReconnectBackoff {
			backoff = r.config.MaxReconnectBackoff
		}
	}
}

func (r *RabbitMQPublisher) setupExchangesAndQueues() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "Failed to open channel for exchange/queue setup")
	}
	defer channel.Close()

	err = channel.ExchangeDeclare(
		ExchangeDeadLetter,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return errors.Wrap(err, "Failed to declare dead letter exchange")
	}

	err = channel.ExchangeDeclare(r.config.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to declare exchange %s", r.config.Exchange)
	}

	err = r.declareQueueWithDLQ(channel, QueueVouchers, DLQVouchers)
	if err != nil {
		return err
	}
	err = channel.QueueBind(QueueVouchers, RoutingKeyVoucherUploaded, r.config.Exchange, false, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to bind queue %s to exchange %s", QueueVouchers, r.config.Exchange)
	}

	return nil
}

func (r *RabbitMQPublisher) declareQueueWithDLQ(channel *amqp091.Channel, queueName string, dlqName string) error {
	_, err := channel.QueueDeclare(dlqName, true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to declare DLQ %s", dlqName)
	}

	err = channel.QueueBind(dlqName, RoutingKeyDeadLetter, ExchangeDeadLetter, false, nil)
	if err != nil {
		return errors.Wrapf(err, "Failed to bind DLQ %s to exchange", dlqName)
	}

	args := amqp091.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": RoutingKeyDeadLetter,
		"x-message-ttl":             r.config.MessageTTL.Milliseconds(),
	}
	_, err = channel.QueueDeclare(queueName, true, false, false, false, args)
	if err != nil {
		return errors.Wrapf(err, "Failed to declare queue %s", queueName)
	}

	return nil
}

func (r *RabbitMQPublisher) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	connection, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}
	r.connection = connection

	err = r.setupExchangesAndQueues()
	if err != nil {
		return errors.Wrap(err, "Failed to setup exchanges and queues")
	}

	err = r.setupPublishChannel()
	if err != nil {
		return errors.Wrap(err, "Failed to setup publish channel")
	}

	go r.handleReconnection(connection)

	return nil
}

func (r *RabbitMQPublisher) ensureConnectionAndChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		if err := r.connect(); err != nil {
			return errors.Wrap(err, "Failed to establish connection")
		}
	}

	if r.publishChannel == nil || r.publishChannel.IsClosed() {
		if err := r.setupPublishChannel(); err != nil {
			return errors.Wrap(err, "Failed to establish channel")
		}
	}

	return nil
}

func (r *RabbitMQPublisher) publishMessageOnExchange(ctx context.Context, message any, exchange, routingKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishMessageOnExchange")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	tracing.LogObjectAsJson(span, "message", message)

	var lastErr error
	for attempt := 0; attempt < r.config.MaxRetries; attempt++ {
		lastErr = r.publishWithConfirm(ctx, message, exchange, routingKey)
		if lastErr == nil {
			return nil
		}

		r.logger.Warnf("Publish attempt %d failed: %v", attempt+1, lastErr)
		if attempt < r.config.MaxRetries-1 {
			time.Sleep(time.Millisecond * 100 * time.Duration(attempt+1))
		}
	}

	return errors.Wrap(lastErr, "Failed to publish message after all retries")
}

func (r *RabbitMQPublisher) publishWithConfirm(ctx context.Context, message any, exchange, routingKey string) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.ensureConnectionAndChannel(); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal message")
	}

	err = r.publishChannel.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		true,  // mandatory - ensure message is routed
		false, // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         jsonBody,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return errors.Wrap(err, "Failed to publish message")
	}

	select {
	case confirm := <-r.confirms:
		if !confirm.Ack {
			return errors.New("Message was not confirmed by server")
		}
	case <-time.After(r.config.PublishTimeout):
		return errors.New("Publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Close gracefully shuts down the publisher
func (r *RabbitMQPublisher) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	select {
	case <-r.closed:
		return nil
	default:
		close(r.closed)
	}

	var err error
	if r.publishChannel != nil {
		err = r.publishChannel.Close()
		if err != nil {
			r.logger.Errorf("Error closing publish channel: %v", err)
		}
	}

	if r.connection != nil {
		if closeErr := r.connection.Close(); closeErr != nil {
			r.logger.Errorf("Error closing connection: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}
