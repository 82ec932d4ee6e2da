package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/engine"
	"github.com/chenhy0213/test-tool-with-db/core/session"
	apperrors "github.com/chenhy0213/test-tool-with-db/core/shared/errors"
	"github.com/chenhy0213/test-tool-with-db/core/template"
)

func ordersTemplate() *template.Template {
	return &template.Template{
		Name:        "orders_by_status",
		Description: "Orders filtered by status",
		Tooltip:     "Check order status",
		Statements:  []string{"SELECT id FROM orders WHERE status = '{{status}}'"},
		Fields: []template.Field{
			{Label: "status", Type: template.FieldSelect, Options: []string{"pending", "shipped"}},
		},
	}
}

func cleanupTemplate() *template.Template {
	return &template.Template{
		Name:        "cleanup_stale_orders",
		Description: "Removes abandoned carts",
		Statements:  []string{"DELETE FROM orders WHERE status = 'abandoned'"},
	}
}

func newTestServer(t *testing.T, reload ReloadFunc, templates ...*template.Template) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng := engine.New(session.Wrap(db, "mysql"), template.NewLibrary(templates))

	srv := NewServer("8080", time.Minute)
	RegisterRoutes(srv.Router(), func() *engine.Engine { return eng }, time.Minute, reload)
	return srv, mock
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHeartbeat(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/heartbeat", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"database":"connected"}`, rec.Body.String())
}

func TestHeartbeat_ReportsDisconnectedSession(t *testing.T) {
	eng := engine.New(session.New(config.Default().Database), template.NewLibrary(nil))

	srv := NewServer("8080", time.Minute)
	RegisterRoutes(srv.Router(), func() *engine.Engine { return eng }, time.Minute, nil)

	rec := doRequest(t, srv, http.MethodGet, "/heartbeat", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"database":"disconnected"}`, rec.Body.String())
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// A prior request guarantees the counters have at least one sample.
	doRequest(t, srv, http.MethodGet, "/heartbeat", "")
	rec := doRequest(t, srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dbrun_http_requests_total")
}

func TestListTemplates(t *testing.T) {
	srv, _ := newTestServer(t, nil, ordersTemplate(), cleanupTemplate())

	rec := doRequest(t, srv, http.MethodGet, "/templates", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"templates": [
			{"name":"orders_by_status","description":"Orders filtered by status","bubble_description":"Check order status","statement_count":1},
			{"name":"cleanup_stale_orders","description":"Removes abandoned carts","statement_count":1}
		]
	}`, rec.Body.String())
}

func TestListTemplates_FiltersBySearchTerm(t *testing.T) {
	srv, _ := newTestServer(t, nil, ordersTemplate(), cleanupTemplate())

	rec := doRequest(t, srv, http.MethodGet, "/templates?q=abandoned", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"templates": [
			{"name":"cleanup_stale_orders","description":"Removes abandoned carts","statement_count":1}
		]
	}`, rec.Body.String())
}

func TestTemplateDetail(t *testing.T) {
	srv, _ := newTestServer(t, nil, ordersTemplate())

	rec := doRequest(t, srv, http.MethodGet, "/templates/orders_by_status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"name": "orders_by_status",
		"description": "Orders filtered by status",
		"bubble_description": "Check order status",
		"statement_count": 1,
		"input_fields": [
			{"label":"status","type":"select","options":["pending","shipped"]}
		],
		"placeholders": ["status"]
	}`, rec.Body.String())
}

func TestTemplateDetail_UnknownTemplate(t *testing.T) {
	srv, _ := newTestServer(t, nil, ordersTemplate())

	rec := doRequest(t, srv, http.MethodGet, "/templates/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"query 'missing' not found","results":[]}`, rec.Body.String())
}

func TestQueryEndpoint_ExecutesTemplate(t *testing.T) {
	srv, mock := newTestServer(t, nil, ordersTemplate())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM orders WHERE status = 'shipped'").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	rec := doRequest(t, srv, http.MethodPost, "/query/orders_by_status", `{"status":"shipped"}`)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Execution-Id"))
	assert.JSONEq(t, `{
		"success": true,
		"error": "",
		"results": [
			{
				"statement_index": 1,
				"sql": "SELECT id FROM orders WHERE status = 'shipped'",
				"type": "SELECT",
				"results": [{"id": 7}],
				"row_count": 1
			}
		]
	}`, rec.Body.String())
}

func TestQueryEndpoint_EmptyBodyRunsInputlessTemplate(t *testing.T) {
	srv, mock := newTestServer(t, nil, cleanupTemplate())

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders WHERE status = 'abandoned'").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	rec := doRequest(t, srv, http.MethodPost, "/query/cleanup_stale_orders", "")

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"success": true,
		"error": "",
		"results": [
			{
				"statement_index": 1,
				"sql": "DELETE FROM orders WHERE status = 'abandoned'",
				"type": "MODIFY",
				"affected_rows": 4,
				"success": true
			}
		]
	}`, rec.Body.String())
}

func TestQueryEndpoint_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "unknown template",
			path:           "/query/missing",
			body:           `{}`,
			expectedStatus: http.StatusNotFound,
			expectedError:  "query 'missing' not found",
		},
		{
			name:           "missing required input",
			path:           "/query/orders_by_status",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "input validation failed",
		},
		{
			name:           "value outside select options",
			path:           "/query/orders_by_status",
			body:           `{"status":"bogus"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "input validation failed",
		},
		{
			name:           "unknown input field",
			path:           "/query/orders_by_status",
			body:           `{"status":"shipped","extra":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "input validation failed",
		},
		{
			name:           "malformed JSON body",
			path:           "/query/orders_by_status",
			body:           `{"status":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, mock := newTestServer(t, nil, ordersTemplate())

			rec := doRequest(t, srv, http.MethodPost, tt.path, tt.body)

			// No statement may reach the database on a rejected request.
			require.NoError(t, mock.ExpectationsWereMet())
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedError)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestQueryEndpoint_DatabaseErrorSurfacesDriverMessage(t *testing.T) {
	srv, mock := newTestServer(t, nil, ordersTemplate())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM orders WHERE status = 'pending'").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	rec := doRequest(t, srv, http.MethodPost, "/query/orders_by_status", `{"status":"pending"}`)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "statement 1 failed")
	assert.Contains(t, rec.Body.String(), assert.AnError.Error())
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestQueryEndpoint_DisconnectedSession(t *testing.T) {
	lib := template.NewLibrary([]*template.Template{ordersTemplate()})
	eng := engine.New(session.New(config.Default().Database), lib)

	srv := NewServer("8080", time.Minute)
	RegisterRoutes(srv.Router(), func() *engine.Engine { return eng }, time.Minute, nil)

	rec := doRequest(t, srv, http.MethodPost, "/query/orders_by_status", `{"status":"shipped"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is not connected")
}

func TestReloadEndpoint(t *testing.T) {
	called := false
	reload := func(ctx context.Context) (int, error) {
		called = true
		return 3, nil
	}
	srv, _ := newTestServer(t, reload, ordersTemplate())

	rec := doRequest(t, srv, http.MethodPost, "/reload", "")

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"templates":3}`, rec.Body.String())
}

func TestReloadEndpoint_FailureKeepsEnvelopeShape(t *testing.T) {
	reload := func(ctx context.Context) (int, error) {
		return 0, apperrors.NewAppError(apperrors.ErrCodeConfigError, "configuration is invalid", nil)
	}
	srv, _ := newTestServer(t, reload, ordersTemplate())

	rec := doRequest(t, srv, http.MethodPost, "/reload", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "configuration is invalid")
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}
