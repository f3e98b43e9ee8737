// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Response 是下游服务响应的简化表示。
type Response struct {
	StatusCode int
	Body       []byte
}

// OK 判断状态码是否属于给定的成功码集合。
func (r *Response) OK(codes ...int) bool {
	for _, c := range codes {
		if r.StatusCode == c {
			return true
		}
	}
	return false
}

// Decode 将响应体反序列化到 v。
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Resolver 在发送请求前改写目标地址，例如通过注册中心解析服务名。
type Resolver interface {
	ResolveURL(raw string) (string, error)
}

// Client 是一个可追踪的、可注入的HTTP客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	timeout    time.Duration
	resolver   Resolver
}

// NewClient 创建一个新的客户端实例
// 不设置 http.Client.Timeout，每次请求的超时由 timeout 派生的 context 控制
func NewClient(tracer trace.Tracer, timeout time.Duration) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		timeout:    timeout,
	}
}

// WithResolver 设置地址解析器，返回同一个客户端
func (c *Client) WithResolver(r Resolver) *Client {
	c.resolver = r
	return c
}

// Get 发送 GET 请求。
func (c *Client) Get(ctx context.Context, serviceURL string) (*Response, error) {
	return c.do(ctx, http.MethodGet, serviceURL, nil)
}

// Patch 发送不带请求体的 PATCH 请求。
func (c *Client) Patch(ctx context.Context, serviceURL string) (*Response, error) {
	return c.do(ctx, http.MethodPatch, serviceURL, nil)
}

// PostJSON 以 JSON 请求体发送 POST 请求。
func (c *Client) PostJSON(ctx context.Context, serviceURL string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, serviceURL, body)
}

func (c *Client) do(ctx context.Context, method, serviceURL string, body []byte) (*Response, error) {
	if c.resolver != nil {
		resolved, err := c.resolver.ResolveURL(serviceURL)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", serviceURL, err)
		}
		serviceURL = resolved
	}
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return nil, err
	}
	// 从 URL 中解析出服务名用于 Span
	spanName := fmt.Sprintf("call-%s", strings.Split(parsedURL.Host, ":")[0])

	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), reader)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	span.SetAttributes(
		attribute.String("http.url", parsedURL.String()),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
