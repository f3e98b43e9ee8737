// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName     string
	Port            int
	Handler         http.Handler
	ShutdownTimeout time.Duration
	// Background 在独立 goroutine 中运行，收到退出信号时其 context 被取消
	Background []func(ctx context.Context)
	// Cleanup 在 HTTP 服务器关闭后按注册的逆序执行
	Cleanup []func(ctx context.Context) error
}

// StartService 封装了通用的启动和优雅关停逻辑，阻塞直到收到 SIGINT/SIGTERM。
func StartService(info AppInfo) {
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           info.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopBackground := startBackground(info.Background)

	go func() {
		log.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("✅ HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	// 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Str("service", info.ServiceName).Msg("Shutting down service...")

	timeout := info.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. 停止后台任务，等它们退出后才释放存储等资源
	if err := stopBackground(ctx); err != nil {
		log.Error().Err(err).Msg("background jobs did not stop before the shutdown deadline")
	}

	// 2. 关闭 HTTP 服务器，等待进行中的请求结束
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down http server")
	} else {
		log.Info().Msg("HTTP server shut down.")
	}

	// 3. 后进先出地释放资源
	for i := len(info.Cleanup) - 1; i >= 0; i-- {
		if err := info.Cleanup[i](ctx); err != nil {
			log.Error().Err(err).Msg("Error during cleanup")
		}
	}

	log.Info().Str("service", info.ServiceName).Msg("Service gracefully shut down.")
}

// startBackground 启动后台任务，返回的 stop 取消任务并等待全部退出，最多等到 ctx 结束
func startBackground(jobs []func(ctx context.Context)) (stop func(ctx context.Context) error) {
	bgCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job func(ctx context.Context)) {
			defer wg.Done()
			job(bgCtx)
		}(job)
	}
	return func(ctx context.Context) error {
		cancel()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
