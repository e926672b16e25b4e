package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
)

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	method  string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewHTTPClient creates a client for baseURL (for example
// "http://10.0.0.2:8000/api"). method selects the provider endpoints
// (init_wave, confirm_wave); an empty method uses the generic confirm path.
func NewHTTPClient(baseURL, method string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		method:  method,
		timeout: timeout,
		client:  &fasthttp.Client{MaxConnsPerHost: 16},
	}
}

// Init creates a payment intent.
func (c *HTTPClient) Init(ctx context.Context, req InitRequest) (InitResponse, error) {
	var out InitResponse
	if err := c.post(ctx, c.initPath(), req, &out); err != nil {
		return InitResponse{}, err
	}
	if out.Error != "" {
		return InitResponse{}, &ApplicationError{Message: out.Error}
	}
	if out.PaymentID == "" {
		return InitResponse{}, fmt.Errorf("%w: init response without payment_id", ErrTransport)
	}
	return out, nil
}

// Confirm polls the confirmation state of a payment intent.
func (c *HTTPClient) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResponse, error) {
	var out ConfirmResponse
	if err := c.post(ctx, c.confirmPath(), req, &out); err != nil {
		return ConfirmResponse{}, err
	}
	if out.Error != "" {
		return ConfirmResponse{}, &ApplicationError{Message: out.Error}
	}
	return out, nil
}

func (c *HTTPClient) initPath() string {
	method := c.method
	if method == "" {
		method = "wave"
	}
	return "/payment/init_" + method + "/"
}

func (c *HTTPClient) confirmPath() string {
	if c.method == "" {
		return "/payment/confirm/"
	}
	return "/payment/confirm_" + c.method + "/"
}

// errorBody is decoded from non-2xx responses so that structured refusals
// reach the user even when the gateway pairs them with an error status.
type errorBody struct {
	Error string `json:"error"`
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	payload, err := sonic.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(http.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		var eb errorBody
		if sonic.Unmarshal(resp.Body(), &eb) == nil && eb.Error != "" {
			return &ApplicationError{Message: eb.Error}
		}
		return fmt.Errorf("%w: %s: status %d", ErrTransport, path, status)
	}

	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrTransport, path, err)
	}
	return nil
}
