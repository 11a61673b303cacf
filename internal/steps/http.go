package steps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Conduit/internal/engine"
	"github.com/shaiso/Conduit/internal/state"
)

const (
	// TransformerHTTP — имя HTTP transformer'а.
	TransformerHTTP = "http"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи параметров HTTP transformer'а.
const (
	configMethod          = "method"
	configURL             = "url"
	configHeaders         = "headers"
	configBody            = "body"
	configFollowRedirects = "follow_redirects"
	configValidateSSL     = "validate_ssl"
	configTimeoutSec      = "timeout_sec"
	configFailOnStatus    = "fail_on_status"
	configBodyOnly        = "body_only"
)

// httpTransformer выполняет HTTP запрос.
//
// url, headers и body рендерятся шаблонами с текущим значением и state.
// Если body не задан, а метод не GET, телом запроса становится текущее значение.
//
// Параметры:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/items/{{ .Value }}",
//	    "headers": {"Authorization": "Bearer {{ .Get \"token\" }}"},
//	    "body": {"id": "{{ .Value }}"},
//	    "follow_redirects": true,
//	    "validate_ssl": true,
//	    "timeout_sec": 30,
//	    "fail_on_status": true,   // статус >= 400 — ошибка *HTTPError
//	    "body_only": false        // вернуть только тело ответа
//	}
//
// Результат:
//
//	{
//	    "status_code": 200,
//	    "headers": {"Content-Type": "application/json", ...},
//	    "body": {...}  // parsed JSON or string
//	}
type httpTransformer struct {
	cfg    *httpConfig
	client *http.Client
}

// httpConfig — распарсенные параметры HTTP transformer'а.
type httpConfig struct {
	Method          string
	URL             string
	Headers         map[string]string
	Body            any
	FollowRedirects bool
	ValidateSSL     bool
	TimeoutSec      int
	FailOnStatus    bool
	BodyOnly        bool
}

func newHTTP(params map[string]any) (Transformer, error) {
	cfg, err := parseHTTPConfig(params)
	if err != nil {
		return nil, err
	}
	return &httpTransformer{cfg: cfg, client: buildClient(cfg)}, nil
}

func (h *httpTransformer) Name() string { return TransformerHTTP }

func (h *httpTransformer) Transform(ctx context.Context, value any, sc *state.Context) (any, error) {
	data := engine.NewData(value, sc)

	req, err := h.buildRequest(ctx, value, data)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	return h.parseResponse(resp)
}

// parseHTTPConfig парсит параметры HTTP transformer'а.
func parseHTTPConfig(params map[string]any) (*httpConfig, error) {
	cfg := &httpConfig{
		Method:          GetConfigString(params, configMethod),
		URL:             GetConfigString(params, configURL),
		Headers:         GetConfigMapString(params, configHeaders),
		Body:            params[configBody],
		FollowRedirects: GetConfigBool(params, configFollowRedirects, true),
		ValidateSSL:     GetConfigBool(params, configValidateSSL, true),
		TimeoutSec:      GetConfigInt(params, configTimeoutSec),
		FailOnStatus:    GetConfigBool(params, configFailOnStatus, true),
		BodyOnly:        GetConfigBool(params, configBodyOnly, false),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, TransformerHTTP)
	}

	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}

	return cfg, nil
}

// buildClient создаёт HTTP клиент с нужными настройками.
func buildClient(cfg *httpConfig) *http.Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	var checkRedirect func(*http.Request, []*http.Request) error
	if !cfg.FollowRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.ValidateSSL,
			},
		},
	}
}

// buildRequest создаёт HTTP запрос, отрендерив url, headers и body.
func (h *httpTransformer) buildRequest(ctx context.Context, value any, data *engine.Data) (*http.Request, error) {
	url, err := engine.Render(h.cfg.URL, data)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(h.cfg.Headers))
	for key, tmpl := range h.cfg.Headers {
		rendered, err := engine.Render(tmpl, data)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		headers[key] = rendered
	}

	body := h.cfg.Body
	if body == nil && h.cfg.Method != http.MethodGet && h.cfg.Method != http.MethodHead {
		body = value
	} else if body != nil {
		body, err = engine.RenderValue(body, data)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := serializeBody(body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, h.cfg.Method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	for key, v := range headers {
		req.Header.Set(key, v)
	}
	return req, nil
}

// serializeBody сериализует body в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// parseResponse парсит HTTP ответ.
func (h *httpTransformer) parseResponse(resp *http.Response) (any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if h.cfg.FailOnStatus && resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(bodyBytes),
		}
	}

	var body any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	if h.cfg.BodyOnly {
		return body, nil
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}

// HTTPError — ответ с кодом ошибки.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
