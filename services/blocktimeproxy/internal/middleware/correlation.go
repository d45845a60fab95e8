package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const CorrelationIDKey contextKey = "correlation-id"

// Correlation echoes X-Correlation-ID, generating one when the client sent none.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CorrelationIDKey, id)))
	})
}

func GetCorrelationID(r *http.Request) string {
	id, _ := r.Context().Value(CorrelationIDKey).(string)
	return id
}
