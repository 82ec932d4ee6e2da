package engine

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/session"
	"github.com/chenhy0213/test-tool-with-db/core/shared/errors"
	"github.com/chenhy0213/test-tool-with-db/core/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockEngine(t *testing.T, templates ...*template.Template) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(session.Wrap(db, "mysql"), template.NewLibrary(templates)), mock
}

func TestExecuteStatements_SelectCapturesRows(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM customers").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Ada").
			AddRow(int64(2), "Grace"))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{"SELECT id, name FROM customers"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, outcome.Results, 1)
	result := outcome.Results[0]
	assert.Equal(t, 1, result.Position)
	assert.Equal(t, KindSelect, result.Kind)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "Ada", result.Rows[0]["name"])
	assert.Equal(t, int64(2), result.Rows[1]["id"])
	assert.Equal(t, 2, outcome.RowsReturned())
}

func TestExecuteStatements_ZeroRowSelectIsSuccess(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM orders WHERE id = 999").WillReturnRows(
		sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{"SELECT * FROM orders WHERE id = 999"})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 1)
	assert.Equal(t, KindSelect, outcome.Results[0].Kind)
	assert.Equal(t, 0, outcome.Results[0].RowCount)
	assert.Empty(t, outcome.Results[0].Rows)
}

func TestExecuteStatements_ModifyCapturesAffectedRows(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status = 'closed' WHERE status = 'stale'").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(),
		[]string{"UPDATE orders SET status = 'closed' WHERE status = 'stale'"})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 1)
	assert.Equal(t, KindModify, outcome.Results[0].Kind)
	assert.Equal(t, int64(3), outcome.Results[0].AffectedRows)
	assert.Equal(t, int64(3), outcome.RowsAffected())
}

func TestExecuteStatements_MixedSequenceCommitsOnce(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE t SET x = 1 WHERE id = 7").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT x FROM t WHERE id = 7").WillReturnRows(
		sqlmock.NewRows([]string{"x"}).AddRow(int64(1)))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{
		"UPDATE t SET x = 1 WHERE id = 7",
		"SELECT x FROM t WHERE id = 7",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "exactly one begin and one commit")

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, KindModify, outcome.Results[0].Kind)
	assert.Equal(t, 1, outcome.Results[0].Position)
	assert.Equal(t, KindSelect, outcome.Results[1].Kind)
	assert.Equal(t, 2, outcome.Results[1].Position)
}

func TestExecuteStatements_FailureRollsBackAndStops(t *testing.T) {
	e, mock := newMockEngine(t)

	driverErr := stderrors.New("Error 1054: Unknown column 'stats' in 'where clause'")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE t SET x = 1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE t SET stats = 2").WillReturnError(driverErr)
	mock.ExpectRollback()

	outcome, err := e.ExecuteStatements(context.Background(), []string{
		"UPDATE t SET x = 1",
		"UPDATE t SET stats = 2",
		"SELECT * FROM t",
	})

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.CodeOf(err))
	assert.ErrorIs(t, err, driverErr, "driver failure surfaced verbatim")
	assert.Contains(t, err.Error(), "statement 2 failed")
	assert.Contains(t, err.Error(), "Error 1054")
	require.NoError(t, mock.ExpectationsWereMet(), "third statement never attempted")
}

func TestExecuteStatements_SkipsEmptyKeepingPositions(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT 2").WillReturnRows(sqlmock.NewRows([]string{"2"}).AddRow(int64(2)))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{"SELECT 1", "   ", "SELECT 2"})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, 1, outcome.Results[0].Position)
	assert.Equal(t, 3, outcome.Results[1].Position, "skipped statement keeps its slot in the numbering")
}

func TestExecuteStatements_SelectVerbCaseInsensitive(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery("  select id FROM t").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{"  select id FROM t"})
	require.NoError(t, err)
	assert.Equal(t, KindSelect, outcome.Results[0].Kind)
}

func TestExecuteStatements_NonSelectVerbsAreModify(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE TABLE audit_log").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{"TRUNCATE TABLE audit_log"})
	require.NoError(t, err)
	assert.Equal(t, KindModify, outcome.Results[0].Kind)
	assert.Equal(t, int64(0), outcome.Results[0].AffectedRows)
}

func TestExecuteStatements_DisconnectedSession(t *testing.T) {
	e := New(session.New(config.Default().Database), template.NewLibrary(nil))

	outcome, err := e.ExecuteStatements(context.Background(), []string{"SELECT 1"})
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.True(t, errors.IsConnectionError(err))
}

func TestExecuteStatements_NormalizesDecimalAndTemporal(t *testing.T) {
	e, mock := newMockEngine(t)

	columns := []*sqlmock.Column{
		sqlmock.NewColumn("price").OfType("DECIMAL", []byte("0.00")),
		sqlmock.NewColumn("created_at").OfType("DATETIME", time.Time{}),
		sqlmock.NewColumn("ship_date").OfType("DATE", time.Time{}),
		sqlmock.NewColumn("note").OfType("VARCHAR", ""),
	}
	rows := sqlmock.NewRowsWithColumnDefinition(columns...).AddRow(
		[]byte("12.50"),
		time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		[]byte("rush order"),
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT price, created_at, ship_date, note FROM orders").WillReturnRows(rows)
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(),
		[]string{"SELECT price, created_at, ship_date, note FROM orders"})
	require.NoError(t, err)

	row := outcome.Results[0].Rows[0]
	assert.Equal(t, 12.5, row["price"], "DECIMAL bytes convert to float")
	assert.Equal(t, "2024-01-15T10:30:00", row["created_at"])
	assert.Equal(t, "2024-01-15", row["ship_date"], "midnight timestamps render date-only")
	assert.Equal(t, "rush order", row["note"], "plain bytes convert to string")
}

func TestExecuteStatements_SerializationFailureAfterCommit(t *testing.T) {
	e, mock := newMockEngine(t)

	columns := []*sqlmock.Column{
		sqlmock.NewColumn("amount").OfType("DECIMAL", []byte("0.00")),
	}
	rows := sqlmock.NewRowsWithColumnDefinition(columns...).AddRow([]byte("not-a-number"))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT amount FROM ledger").WillReturnRows(rows)
	mock.ExpectCommit()

	outcome, err := e.ExecuteStatements(context.Background(), []string{"SELECT amount FROM ledger"})

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, errors.ErrCodeSerializationError, errors.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet(), "commit already happened; normalization never rolls back")
}

func TestExecuteTemplate(t *testing.T) {
	tpl := &template.Template{
		Name:       "orders_by_status",
		Statements: []string{"SELECT * FROM orders WHERE status = '{{status}}' LIMIT {{limit}}"},
		Fields: []template.Field{
			{Label: "status", Type: template.FieldSelect, Options: []string{"pending", "shipped"}},
			{Label: "limit", Type: template.FieldNumber},
		},
	}
	e, mock := newMockEngine(t, tpl)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM orders WHERE status = 'shipped' LIMIT 10").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectCommit()

	outcome, err := e.ExecuteTemplate(context.Background(), "orders_by_status",
		map[string]any{"status": "shipped", "limit": 10})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "substituted SQL sent verbatim")

	assert.Equal(t, "orders_by_status", outcome.TemplateName)
	assert.NotEmpty(t, outcome.ExecutionID)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "SELECT * FROM orders WHERE status = 'shipped' LIMIT 10", outcome.Results[0].SQL)
}

func TestExecuteTemplate_NotFound(t *testing.T) {
	e, _ := newMockEngine(t)

	_, err := e.ExecuteTemplate(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "query 'ghost' not found")
}

func TestExecuteTemplate_ValidationFailure(t *testing.T) {
	tpl := &template.Template{
		Name:       "by_id",
		Statements: []string{"SELECT * FROM t WHERE id = {{id}}"},
		Fields:     []template.Field{{Label: "id", Type: template.FieldNumber}},
	}
	e, mock := newMockEngine(t, tpl)

	_, err := e.ExecuteTemplate(context.Background(), "by_id", map[string]any{"id": "NaN"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	var inputErr *template.InputError
	assert.ErrorAs(t, err, &inputErr)
	require.NoError(t, mock.ExpectationsWereMet(), "no database activity on validation failure")
}

func TestExecuteTemplate_CachedSelectServedOnce(t *testing.T) {
	tpl := &template.Template{
		Name:       "cached_report",
		Statements: []string{"SELECT status, COUNT(*) AS n FROM orders GROUP BY status"},
		CacheTTL:   time.Minute,
	}
	e, mock := newMockEngine(t, tpl)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, COUNT(*) AS n FROM orders GROUP BY status").WillReturnRows(
		sqlmock.NewRows([]string{"status", "n"}).AddRow("pending", int64(4)))
	mock.ExpectCommit()

	first, err := e.ExecuteTemplate(context.Background(), "cached_report", nil)
	require.NoError(t, err)

	second, err := e.ExecuteTemplate(context.Background(), "cached_report", nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "second run must not hit the database")

	assert.Equal(t, first.Results[0].Rows, second.Results[0].Rows)
	assert.NotEqual(t, first.ExecutionID, second.ExecutionID, "cache hits run under their own execution ID")

	// Mutating a served outcome must not poison the cache.
	second.Results[0].Rows[0]["status"] = "tampered"
	third, err := e.ExecuteTemplate(context.Background(), "cached_report", nil)
	require.NoError(t, err)
	assert.Equal(t, "pending", third.Results[0].Rows[0]["status"])
}

func TestExecuteTemplate_ModifyTemplateNeverCached(t *testing.T) {
	tpl := &template.Template{
		Name:       "bump",
		Statements: []string{"UPDATE counters SET n = n + 1"},
		CacheTTL:   time.Minute,
	}
	e, mock := newMockEngine(t, tpl)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE counters SET n = n + 1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	_, err := e.ExecuteTemplate(context.Background(), "bump", nil)
	require.NoError(t, err)
	_, err = e.ExecuteTemplate(context.Background(), "bump", nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "both runs reach the database")
}

func TestIsSelect(t *testing.T) {
	tests := []struct {
		statement string
		expected  bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"\tSeLeCt now()", true},
		{"INSERT INTO t VALUES (1)", false},
		{"UPDATE t SET x = 1", false},
		{"DELETE FROM t", false},
		{"SHOW TABLES", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isSelect(tt.statement), tt.statement)
	}
}
