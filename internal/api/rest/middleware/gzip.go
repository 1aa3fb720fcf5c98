package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/middleware"
)

// CompressHandle gzips JSON and plain text responses for clients sending Accept-Encoding: gzip.
var CompressHandle = chiMiddleware.Compress(gzip.DefaultCompression, "application/json", "text/plain")

// DecompressHandle transparently unpacks gzip request bodies.
func DecompressHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer gz.Close()
		r.Body = gz
		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}
