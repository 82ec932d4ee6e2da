package http

import (
	"net/http"

	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/transport/http/dto"
	apperrors "github.com/chenhy0213/test-tool-with-db/core/shared/errors"
)

// handleReload re-reads the configuration and swaps in a fresh engine. A
// failed reload leaves the previous configuration serving.
func handleReload(reload ReloadFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLog := logging.New("Handler")
		handlerLog.Infof("Request: %s %s", r.Method, r.URL.Path)

		count, err := reload(r.Context())
		if err != nil {
			handlerLog.Errorf("Reload failed: %v", err)
			writeErrorResponse(w, apperrors.StatusOf(err), err.Error())
			return
		}

		handlerLog.Infof("Configuration reloaded, %d template(s)", count)
		writeJSON(w, http.StatusOK, dto.ReloadResponse{
			Success:   true,
			Templates: count,
		})
	}
}
