package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds the cross-origin policy for browser clients of the API.
type CORSConfig struct {
	AllowOrigin   string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        int
}

// DefaultCORSConfig allows any origin. Browsers may send the EventSource
// resume header and read the request id back.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:   "*",
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Authorization", "Accept", "Last-Event-ID", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        86400,
	}
}

// headers renders the config once into header name/value pairs.
func (c CORSConfig) headers() [][2]string {
	h := [][2]string{
		{"Access-Control-Allow-Origin", c.AllowOrigin},
		{"Access-Control-Allow-Methods", strings.Join(c.AllowMethods, ", ")},
		{"Access-Control-Allow-Headers", strings.Join(c.AllowHeaders, ", ")},
		{"Access-Control-Max-Age", strconv.Itoa(c.MaxAge)},
	}
	if len(c.ExposeHeaders) > 0 {
		h = append(h, [2]string{"Access-Control-Expose-Headers", strings.Join(c.ExposeHeaders, ", ")})
	}
	return h
}

// NewCORSMiddleware sets CORS headers on every operation response.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	headers := config.headers()
	return func(ctx huma.Context, next func(huma.Context)) {
		for _, kv := range headers {
			ctx.SetHeader(kv[0], kv[1])
		}
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests on every path. Huma only sees
// registered operations, so OPTIONS needs a mux-level handler.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	headers := config.headers()
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		for _, kv := range headers {
			w.Header().Set(kv[0], kv[1])
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
