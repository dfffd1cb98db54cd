package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
)

// maxLoggedArgLen truncates long string arguments such as expressions.
const maxLoggedArgLen = 200

var sensitiveArgKeywords = []string{"password", "secret", "token", "key", "credential"}

// MCPRequestLogger returns middleware that logs one line per MCP JSON-RPC call
// with the tool name, sanitized arguments and the outcome. Tool failures are
// reported by mcp-go as results with isError set, so the response body is
// inspected as well. Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var call rpcCall
			if len(body) > 0 {
				if err := json.Unmarshal(body, &call); err != nil {
					logger.Debug("MCP request is not a single JSON-RPC call", zap.Error(err))
				}
			}

			recorder := &bodyRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			fields := []zap.Field{
				zap.String("method", call.Method),
				zap.Duration("duration", time.Since(start)),
			}
			if call.Params.Name != "" {
				fields = append(fields,
					zap.String("tool", call.Params.Name),
					zap.Any("arguments", sanitizeArguments(call.Params.Arguments)))
			}

			var reply rpcReply
			if err := json.Unmarshal(recorder.body.Bytes(), &reply); err != nil {
				logger.Debug("MCP call", fields...)
				return
			}
			switch {
			case reply.Error != nil:
				logger.Info("MCP call failed", append(fields,
					zap.Int("error_code", reply.Error.Code),
					zap.String("error_message", reply.Error.Message))...)
			case reply.Result.IsError:
				logger.Info("MCP tool returned error", fields...)
			default:
				logger.Debug("MCP call", fields...)
			}
		})
	}
}

type rpcCall struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcReply struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// bodyRecorder tees the response body so the reply can be inspected.
type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// sanitizeArguments redacts sensitive fields and truncates long strings.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		redact := false
		for _, kw := range sensitiveArgKeywords {
			if strings.Contains(lower, kw) {
				redact = true
				break
			}
		}
		if redact {
			out[k] = logging.RedactedText
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = logging.TruncateString(s, maxLoggedArgLen)
			continue
		}
		out[k] = v
	}
	return out
}
