package middleware

import (
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// compressibleTypes are the media types this server emits that benefit from
// gzip: rendered pages, stylesheets and JSON.
var compressibleTypes = []string{
	"text/html",
	"text/css",
	"text/plain",
	"application/json",
	"application/javascript",
	"image/svg+xml",
}

// gzipResponseWriter decides whether to compress once the handler has set
// its Content-Type, on the first WriteHeader or Write.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	decided     bool
	compressing bool
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	g.decide(status)
	g.ResponseWriter.WriteHeader(status)
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.decided {
		if g.Header().Get("Content-Type") == "" {
			g.Header().Set("Content-Type", http.DetectContentType(b))
		}
		g.WriteHeader(http.StatusOK)
	}
	if g.compressing {
		return g.gz.Write(b)
	}
	return g.ResponseWriter.Write(b)
}

func (g *gzipResponseWriter) decide(status int) {
	if g.decided {
		return
	}
	g.decided = true

	h := g.Header()
	if status < 200 || status == http.StatusNoContent || status == http.StatusNotModified {
		return
	}
	if h.Get("Content-Encoding") != "" || !isCompressible(h.Get("Content-Type")) {
		return
	}

	g.compressing = true
	g.gz = gzipPool.Get().(*gzip.Writer)
	g.gz.Reset(g.ResponseWriter)
	h.Set("Content-Encoding", "gzip")
	h.Del("Content-Length")
}

func (g *gzipResponseWriter) close() {
	if !g.compressing {
		return
	}
	_ = g.gz.Close()
	gzipPool.Put(g.gz)
}

// Compress gzips text responses for clients that accept it.
type Compress struct{}

// NewCompress creates a new compression middleware.
func NewCompress() *Compress {
	return &Compress{}
}

// Apply adds gzip compression to responses when the client accepts it.
// /metrics is skipped because the Prometheus handler negotiates its own
// encoding.
func (c *Compress) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || r.URL.Path == "/metrics" || !acceptsGzip(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		gzw := &gzipResponseWriter{ResponseWriter: w}
		defer gzw.close()

		next.ServeHTTP(gzw, r)
	})
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		params := strings.Split(part, ";")
		if !strings.EqualFold(strings.TrimSpace(params[0]), "gzip") {
			continue
		}
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && k == "q" {
				q, err := strconv.ParseFloat(v, 64)
				return err == nil && q > 0
			}
		}
		return true
	}
	return false
}

func isCompressible(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, t := range compressibleTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}
