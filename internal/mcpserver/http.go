package mcpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"kotadb/internal/logging"
)

const (
	headerProtocolVersion = "MCP-Protocol-Version"
	headerSessionID       = "Mcp-Session-Id"
	maxSessionIDBytes     = 256
)

// NewHTTPRouter builds a chi router translating each POST body into the
// same request path the stdio scanner uses, so both transports share one
// Dispatcher (§4.8.1). Origin allow-list comes from KOTA_ALLOWED_ORIGINS
// (comma-separated), consumed by cors.Handler.
func NewHTTPRouter(d *Dispatcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(),
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", headerProtocolVersion, headerSessionID},
		AllowCredentials: false,
	}))
	r.Use(validateMCPHeaders(d))

	r.Post("/mcp", handleRPC(d))
	return r
}

func allowedOrigins() []string {
	raw := os.Getenv("KOTA_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// validateMCPHeaders enforces §4.8's header rules: MCP-Protocol-Version
// must match the server's negotiated version once one exists, and a
// present Mcp-Session-Id must be non-empty and within the size cap.
func validateMCPHeaders(d *Dispatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sid := req.Header.Get(headerSessionID); sid != "" && len(sid) > maxSessionIDBytes {
				http.Error(w, "Mcp-Session-Id exceeds 256 bytes", http.StatusBadRequest)
				return
			}

			if pv := req.Header.Get(headerProtocolVersion); pv != "" {
				if negotiated := d.NegotiatedProtocol(); negotiated != "" && negotiated != pv {
					http.Error(w, "MCP-Protocol-Version mismatch", http.StatusBadRequest)
					return
				}
			}

			next.ServeHTTP(w, req)
		})
	}
}

func handleRPC(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxLineBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		resp := d.Handle(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.ToolsError("failed to encode HTTP response: %v", err)
		}
	}
}
