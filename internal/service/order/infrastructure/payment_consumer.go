// internal/service/order/infrastructure/payment_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/mq"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// PaymentStatusUpdater 是消费者驱动的应用服务能力
type PaymentStatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error)
}

// PaymentResult 是支付服务发布的支付结果消息
type PaymentResult struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// ErrMalformedPaymentResult 表示消息无法解析，这类消息会被提交跳过
var ErrMalformedPaymentResult = errors.New("malformed payment result")

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentResultConsumer 是一个驱动适配器，监听支付结果并驱动支付状态变更，
// 与 PATCH /{id}/payment-status/{status} 走同一条应用服务路径。
type PaymentResultConsumer struct {
	reader  messageReader
	updater PaymentStatusUpdater
	topic   string

	// 同一条消息重试的初始与最大间隔
	retryMin time.Duration
	retryMax time.Duration
}

const (
	defaultRetryMin = 500 * time.Millisecond
	defaultRetryMax = 30 * time.Second
)

func NewPaymentResultConsumer(reader *kafka.Reader, updater PaymentStatusUpdater) *PaymentResultConsumer {
	return &PaymentResultConsumer{
		reader:   reader,
		updater:  updater,
		topic:    reader.Config().Topic,
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
	}
}

// Run 阻塞直到 ctx 被取消
func (c *PaymentResultConsumer) Run(ctx context.Context) {
	log.Info().Str("topic", c.topic).Msg("✅ Payment result consumer started")
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Error().Err(err).Msg("close payment result reader")
		}
	}()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("🛑 Payment result consumer shutting down.")
				return
			}
			log.Error().Err(err).Msg("could not read payment result, retrying")
			time.Sleep(time.Second)
			continue
		}

		// 提交后续偏移量会连带提交之前的消息，所以失败的消息必须原地重试，不能跳过
		if !c.apply(ctx, msg) {
			log.Info().Int64("offset", msg.Offset).Msg("🛑 Payment result consumer shutting down, message left uncommitted.")
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit payment result")
		}
	}
}

// apply 以指数退避重试 Handle，直到成功、消息被判定为无法解析或 ctx 结束。
// 返回 false 表示 ctx 已结束，消息未处理。
func (c *PaymentResultConsumer) apply(ctx context.Context, msg kafka.Message) bool {
	wait := c.retryMin
	if wait <= 0 {
		wait = defaultRetryMin
	}
	maxWait := c.retryMax
	if maxWait < wait {
		maxWait = wait
	}
	for attempt := 1; ; attempt++ {
		err := c.Handle(ctx, msg)
		if err == nil || errors.Is(err, ErrMalformedPaymentResult) {
			return true
		}
		log.Error().Err(err).Int64("offset", msg.Offset).Int("attempt", attempt).Dur("retry_in", wait).
			Msg("payment result not applied, retrying")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}

// Handle 处理单条消息。未知订单只记录日志，不视为失败。
func (c *PaymentResultConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	ctx = mq.ExtractTraceContext(ctx, msg.Headers)
	ctx, span := otel.Tracer("payment-result-consumer").Start(ctx, "PaymentResultConsumer.Handle")
	defer span.End()

	var result PaymentResult
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("discarding undecodable payment result")
		return errors.Wrap(ErrMalformedPaymentResult, err.Error())
	}
	status, err := domain.ParsePaymentStatus(result.Status)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("order_id", result.OrderID).Msg("discarding payment result")
		return errors.Wrap(ErrMalformedPaymentResult, err.Error())
	}
	span.SetAttributes(attribute.Int64("order.id", result.OrderID), attribute.String("payment.status", string(status)))

	_, err = c.updater.UpdatePaymentStatus(ctx, result.OrderID, status)
	if errors.Is(err, domain.ErrOrderNotFound) {
		logger.Ctx(ctx).Warn().Int64("order_id", result.OrderID).Msg("payment result for unknown order")
		return nil
	}
	return err
}
