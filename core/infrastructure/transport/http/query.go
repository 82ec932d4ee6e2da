package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chenhy0213/test-tool-with-db/core/engine"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/transport/http/dto"
	apperrors "github.com/chenhy0213/test-tool-with-db/core/shared/errors"
	"github.com/chenhy0213/test-tool-with-db/core/shared/execctx"
)

// handleQuery executes the named template with the inputs from the request
// body. The body is a flat JSON object keyed by input field label; an empty
// body runs templates that take no inputs.
func handleQuery(engines EngineProvider, queryTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLog := logging.New("Handler")
		name := chi.URLParam(r, "name")
		handlerLog.Infof("Request: %s %s", r.Method, r.URL.Path)

		inputs := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil && !errors.Is(err, io.EOF) {
			handlerLog.Errorf("Failed to parse JSON body: %v", err)
			writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		handlerLog.Debugf("Query '%s', %d input(s)", name, len(inputs))

		ctx := execctx.Ensure(r.Context())
		w.Header().Set("X-Execution-Id", execctx.ExecutionID(ctx))
		if queryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, queryTimeout)
			defer cancel()
		}

		outcome, err := engines().ExecuteTemplate(ctx, name, inputs)
		if err != nil {
			statusCode := apperrors.StatusOf(err)
			handlerLog.Errorf("Query execution failed: %v", err)
			handlerLog.Infof("Response: %d", statusCode)
			writeErrorResponse(w, statusCode, err.Error())
			return
		}

		// Results stays an array even when every statement was skipped.
		results := outcome.Results
		if results == nil {
			results = []*engine.StatementResult{}
		}

		handlerLog.Debugf("Query '%s' executed, %d result(s)", name, len(results))
		handlerLog.Infof("Response: %d", http.StatusOK)
		writeJSON(w, http.StatusOK, dto.ExecuteResponse{
			Success: true,
			Error:   "",
			Results: results,
		})
	}
}
