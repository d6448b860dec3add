package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/luispater/CopilotBridge/internal/auth/copilot"
	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/misc"
	"github.com/luispater/CopilotBridge/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// upstreamHeaderTimeout bounds how long the relay waits for upstream
// response headers. The response body itself is not bounded so long
// streams are unaffected.
const upstreamHeaderTimeout = 120 * time.Second

// ProxyHandler relays completion requests to the upstream Copilot API,
// attaching a valid service token obtained from the broker.
type ProxyHandler struct {
	getCfg     func() *config.Config
	broker     *copilot.TokenBroker
	httpClient *http.Client
}

// NewProxyHandler creates a proxy handler. getCfg returns the current
// configuration so hot reloads take effect without restarting the handler.
func NewProxyHandler(getCfg func() *config.Config, broker *copilot.TokenBroker) *ProxyHandler {
	transport := &http.Transport{
		ResponseHeaderTimeout: upstreamHeaderTimeout,
	}
	httpClient := util.SetProxy(getCfg(), &http.Client{Transport: transport})

	return &ProxyHandler{
		getCfg:     getCfg,
		broker:     broker,
		httpClient: httpClient,
	}
}

// Proxy handles a single inbound request: it obtains a valid service token,
// rebuilds the request against the upstream base URL with the brokered
// header set, and relays the response. The response mode is decided once
// per request from the "stream" flag in the request body; an absent flag
// means buffered.
func (h *ProxyHandler) Proxy(c *gin.Context) {
	rawJSON, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Message: "failed to read request body",
				Type:    "invalid_request_error",
			},
		})
		return
	}

	headers, err := h.broker.Headers(c.Request.Context())
	if err != nil {
		h.writeBrokerError(c, err)
		return
	}

	cfg := h.getCfg()
	target := cfg.UpstreamBaseURL() + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		target += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, bytes.NewReader(rawJSON))
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{
				Message: "failed to build upstream request",
				Type:    "upstream_error",
			},
		})
		return
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	misc.EnsureHeader(req.Header, c.Request.Header, "Accept", "application/json")

	streamRequested := gjson.GetBytes(rawJSON, "stream").Type == gjson.True

	resp, err := h.httpClient.Do(req)
	if err != nil {
		log.Errorf("upstream request failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{
				Message: "upstream request failed",
				Type:    "upstream_error",
			},
		})
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if streamRequested {
		h.relayStream(c, resp)
		return
	}
	h.relayBuffered(c, resp)
}

// writeBrokerError maps a token broker failure onto the wire: credential
// discovery problems are the server's fault, issuance problems are the
// upstream's.
func (h *ProxyHandler) writeBrokerError(c *gin.Context, err error) {
	var authErr *copilot.AuthenticationError
	if errors.As(err, &authErr) {
		log.Errorf("credential discovery failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Message: authErr.Message,
				Type:    "authentication_error",
			},
		})
		return
	}

	var upstreamErr *copilot.UpstreamError
	if errors.As(err, &upstreamErr) {
		log.Errorf("token issuance failed: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{
				Message: upstreamErr.Message,
				Type:    "upstream_error",
			},
		})
		return
	}

	log.Errorf("token broker failed: %v", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Message: "failed to obtain service token",
			Type:    "authentication_error",
		},
	})
}

// relayBuffered reads the whole upstream body and forwards it with the
// upstream status. A body that is not valid JSON is treated as an upstream
// failure rather than passed through.
func (h *ProxyHandler) relayBuffered(c *gin.Context, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Errorf("failed to read upstream response: %v", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{
				Message: "failed to read upstream response",
				Type:    "upstream_error",
			},
		})
		return
	}

	if !gjson.ValidBytes(body) {
		log.Errorf("upstream returned malformed response, status %d", resp.StatusCode)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: ErrorDetail{
				Message: "upstream returned malformed response",
				Type:    "upstream_error",
			},
		})
		return
	}

	c.Data(resp.StatusCode, "application/json", body)
}

// relayStream forwards the upstream body to the client chunk by chunk,
// flushing after every chunk so events reach the client as they arrive.
// The producer goroutine selects on the request context so it never leaks
// when the client disconnects mid-stream.
func (h *ProxyHandler) relayStream(c *gin.Context, resp *http.Response) {
	for key, values := range resp.Header {
		if key == "Content-Length" {
			continue
		}
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}
	misc.EnsureHeader(c.Writer.Header(), nil, "Content-Type", "text/event-stream")
	c.Status(resp.StatusCode)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		_, _ = io.Copy(c.Writer, resp.Body)
		return
	}

	dataChan := make(chan []byte)
	errChan := make(chan error, 1)
	ctx := c.Request.Context()

	go func() {
		defer close(dataChan)
		buf := make([]byte, 8192)
		for {
			n, errRead := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case dataChan <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if errRead != nil {
				if errRead != io.EOF {
					errChan <- errRead
				}
				return
			}
		}
	}()

	for {
		select {
		case chunk, okChan := <-dataChan:
			if !okChan {
				return
			}
			_, _ = c.Writer.Write(chunk)
			flusher.Flush()
		case errStream := <-errChan:
			log.Errorf("stream relay interrupted: %v", errStream)
			return
		case <-ctx.Done():
			return
		}
	}
}
