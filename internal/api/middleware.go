package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (a *App) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				a.log.Printf("panic: %v", panicError)
				w.Header().Set("Connection", "close")
				a.writeJson(w, http.StatusInternalServerError, map[string]string{
					"message": "internal server error",
				})
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (a *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Printf("json encode: %v", err)
	}
}
