// cmd/order-service/main.go
package main

import (
	"context"
	"flag"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/bootstrap"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/httpclient"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/mq"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/nacos"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/tracing"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/application"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/infrastructure"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/infrastructure/adapter"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/interfaces"
	"github.com/gabrielmatosms/tc-orders-service/internal/zookeeper"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	configPath := flag.String("config", envOr("ORDERS_CONFIG", "configs/orders.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := bootstrap.Init(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	serviceName := cfg.App.Name
	logger.Init(serviceName, cfg.Log.Level)

	// 1. 初始化核心技术组件
	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	tracer := otel.Tracer(serviceName)

	ctx := context.Background()
	store, err := infrastructure.OpenStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to open storage")
	}

	cleanup := []func(context.Context) error{
		tp.Shutdown,
		func(context.Context) error { return store.Close() },
	}
	var background []func(context.Context)

	var publisher port.EventPublisher = infrastructure.NoopEventPublisher{}
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
		publisher = infrastructure.NewKafkaEventPublisher(writer)
		cleanup = append(cleanup, func(context.Context) error { return writer.Close() })
	} else {
		log.Warn().Msg("no kafka brokers configured, order events are not published")
	}

	// 2. 服务注册与发现
	httpClient := httpclient.NewClient(tracer, cfg.Services.Timeout)
	if nc := cfg.Infra.Nacos; nc.Addrs != "" {
		registry, err := nacos.NewClient(nacos.Config{Addrs: nc.Addrs, Namespace: nc.Namespace, Group: nc.Group})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		ip, err := nacos.OutboundIP()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to detect outbound ip")
		}
		if err := registry.Register(serviceName, ip, cfg.App.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to register service with nacos")
		}
		httpClient.WithResolver(registry)
		// 后进先出：先注销，再关闭客户端
		cleanup = append(cleanup,
			func(context.Context) error { return registry.Close() },
			func(context.Context) error { return registry.Deregister() },
		)
	}

	// 3. 组装出站适配器与应用服务
	customers := adapter.NewCustomerHTTPAdapter(httpClient, cfg.Services.CustomersURL)
	products := adapter.NewProductHTTPAdapter(httpClient, cfg.Services.ProductsURL, cfg.Services.ProductFanOut)
	payments := adapter.NewPaymentHTTPAdapter(httpClient, cfg.Services.PaymentsURL)

	orderService := application.NewOrderApplicationService(store.Orders(), store.Items(), tracer, publisher, cfg.Storage.Backend)
	placement := application.NewPlacementService(orderService, customers, products, payments, tracer)

	// 4. 后台任务：支付结果消费与总价对账
	if len(cfg.Infra.Kafka.Brokers) > 0 && cfg.Infra.Kafka.PaymentTopic != "" {
		reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.PaymentTopic, cfg.Infra.Kafka.GroupID)
		consumer := infrastructure.NewPaymentResultConsumer(reader, orderService)
		background = append(background, consumer.Run)
	}
	if cfg.Reconcile.Interval > 0 {
		interval := cfg.Reconcile.Interval
		var lock application.PassLock
		if zc := cfg.Infra.ZooKeeper; len(zc.Servers) > 0 {
			conn, err := zookeeper.Connect(zc.Servers, zc.SessionTimeout)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to connect to zookeeper")
			}
			zkLock, err := zookeeper.NewDistributedLock(conn, zc.LockName)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to prepare reconciler lock")
			}
			lock = zkLock
			cleanup = append(cleanup, func(context.Context) error { conn.Close(); return nil })
		}
		background = append(background, func(ctx context.Context) { placement.RunReconciler(ctx, interval, lock) })
	}

	// 5. 入站适配器
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := interfaces.NewRouter(serviceName, cfg.App.APIPrefix, tracer, interfaces.NewOrderHandler(orderService, placement))

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:     serviceName,
		Port:            cfg.App.Port,
		Handler:         router,
		ShutdownTimeout: cfg.App.ShutdownTimeout,
		Background:      background,
		Cleanup:         cleanup,
	})
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
