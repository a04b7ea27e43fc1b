package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"securityapi/app"
	"securityapi/internal/config"
)

var (
	initOnce   sync.Once
	apiRuntime *app.Runtime
	initErr    error
)

// Handler is the serverless entry point. The runtime is built on first use
// and reused by warm invocations.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		cfg, err := config.Load(config.Options{LoadDotEnv: false})
		if err != nil {
			initErr = err
			return
		}
		apiRuntime, initErr = app.Build(context.Background(), cfg)
	})

	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "application bootstrap failed"})
		return
	}

	apiRuntime.Handler.ServeHTTP(w, r)
}
