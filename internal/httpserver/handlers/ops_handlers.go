package handlers

import (
	"crypto/subtle"
	"net/http"

	"erpcore/internal/services/startup"

	"go.uber.org/zap"
)

const startupKeyHeader = "X-Startup-Key"

func Health(boot *startup.Bootstrapper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := boot.Health(r.Context())
		if h.Database != "up" {
			writeEnvelope(w, http.StatusServiceUnavailable, envelope{Message: "database unreachable", Data: h, Errors: []string{"database is down"}})
			return
		}
		respondJSON(w, http.StatusOK, "service is healthy", h)
	}
}

// StartupInit migrates and seeds. When key is set the caller must present it
// in the X-Startup-Key header.
func StartupInit(boot *startup.Bootstrapper, key string, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(startupKeyHeader)), []byte(key)) != 1 {
			Fail(w, http.StatusUnauthorized, "invalid startup key")
			return
		}
		rep, err := boot.Init(r.Context())
		if err != nil {
			writeError(w, r, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, "startup completed", rep)
	}
}
