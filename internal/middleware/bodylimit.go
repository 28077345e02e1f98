package middleware

import "net/http"

// BodyLimit caps request bodies before any later middleware or handler
// reads them. Reads past the cap fail with *http.MaxBytesError.
type BodyLimit struct {
	maxBytes int64
}

func NewBodyLimit(maxBytes int64) *BodyLimit {
	return &BodyLimit{maxBytes: maxBytes}
}

func (b *BodyLimit) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, b.maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}
