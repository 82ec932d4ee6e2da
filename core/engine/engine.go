package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/observability"
	"github.com/chenhy0213/test-tool-with-db/core/session"
	"github.com/chenhy0213/test-tool-with-db/core/shared/errors"
	"github.com/chenhy0213/test-tool-with-db/core/shared/execctx"
	"github.com/chenhy0213/test-tool-with-db/core/template"
)

// Engine resolves templates into statement sequences and executes them
// through a session. An Engine is immutable after construction; reloading
// configuration builds a fresh one.
type Engine struct {
	session *session.Session
	library *template.Library
	cache   *outcomeCache
	log     logging.Logger
}

// New creates an engine over a session and template library.
func New(sess *session.Session, lib *template.Library) *Engine {
	return &Engine{
		session: sess,
		library: lib,
		cache:   newOutcomeCache(),
		log:     logging.New("Engine"),
	}
}

// Library exposes the template set the engine executes from.
func (e *Engine) Library() *template.Library {
	return e.library
}

// Session exposes the database session the engine executes through.
func (e *Engine) Session() *session.Session {
	return e.session
}

// ExecuteTemplate runs a named template with raw input values: inputs are
// resolved against the template's fields, substituted into each statement,
// and the sequence is executed atomically. Results of all-SELECT templates
// with a cache TTL are served from cache when fresh.
func (e *Engine) ExecuteTemplate(ctx context.Context, name string, rawInputs map[string]any) (*Outcome, error) {
	ctx = execctx.Ensure(ctx)

	tpl, ok := e.library.Find(name)
	if !ok {
		return nil, errors.NewAppError(errors.ErrCodeTemplateNotFound,
			fmt.Sprintf("query '%s' not found", name), nil)
	}

	resolved, err := template.ResolveInputs(tpl.Fields, rawInputs)
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeValidationError, "input validation failed", err)
	}

	statements := make([]string, len(tpl.Statements))
	for i, stmt := range tpl.Statements {
		statements[i] = template.Substitute(stmt, resolved)
	}

	cacheable := tpl.CacheTTL > 0 && allSelects(statements)
	cacheKey := ""
	if cacheable {
		cacheKey = buildCacheKey(name, statements)
		if cached, hit := e.cache.Get(cacheKey); hit {
			e.log.Debugf("Cache hit for query '%s'", name)
			cached.ExecutionID = execctx.ExecutionID(ctx)
			return cached, nil
		}
	}

	e.log.Debugf("Executing query '%s' (%d statement(s))", name, len(statements))

	ctx, finish := observability.StartTemplateSpan(ctx, name, resolved.Values())
	start := time.Now()
	outcome, err := e.ExecuteStatements(ctx, statements)
	observability.RecordTemplateExecution(ctx, name, err == nil, float64(time.Since(start).Milliseconds()))
	finish(err)
	if err != nil {
		return nil, err
	}

	outcome.TemplateName = name
	outcome.ExecutionID = execctx.ExecutionID(ctx)
	if cacheable {
		e.cache.Set(cacheKey, outcome, tpl.CacheTTL)
	}
	return outcome, nil
}

// ExecuteStatements runs an already substituted statement sequence inside a
// single transaction. Empty statements are skipped but keep their position
// in the numbering. The first driver failure rolls everything back and is
// surfaced with the original driver message preserved; statements after it
// are not attempted. Result normalization happens after the commit, so a
// SERIALIZATION_ERROR reports a committed transaction whose outcome could
// not be rendered.
func (e *Engine) ExecuteStatements(ctx context.Context, statements []string) (*Outcome, error) {
	outcome := &Outcome{}

	err := e.session.Transact(ctx, func(tx *sql.Tx) error {
		for i, statement := range statements {
			if strings.TrimSpace(statement) == "" {
				continue
			}
			result, err := runStatement(ctx, tx, i+1, statement)
			if err != nil {
				return err
			}
			outcome.Results = append(outcome.Results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, result := range outcome.Results {
		if result.Kind == KindSelect {
			if err := normalizeResult(result); err != nil {
				return nil, err
			}
		}
	}

	return outcome, nil
}

func runStatement(ctx context.Context, tx *sql.Tx, position int, statement string) (*StatementResult, error) {
	if isSelect(statement) {
		return runSelect(ctx, tx, position, statement)
	}
	return runModify(ctx, tx, position, statement)
}

// isSelect classifies a statement by its leading verb, case-insensitively.
func isSelect(statement string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(statement)), "SELECT")
}

func runSelect(ctx context.Context, tx *sql.Tx, position int, statement string) (*StatementResult, error) {
	rows, err := tx.QueryContext(ctx, statement)
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeDatabaseError,
			fmt.Sprintf("statement %d failed", position), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeDatabaseError,
			fmt.Sprintf("statement %d failed", position), err)
	}

	columnDBTypes := make(map[string]string, len(columns))
	if colTypes, typesErr := rows.ColumnTypes(); typesErr == nil {
		for _, ct := range colTypes {
			columnDBTypes[ct.Name()] = ct.DatabaseTypeName()
		}
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, errors.WrapError(errors.ErrCodeDatabaseError,
				fmt.Sprintf("statement %d failed", position), err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			val := values[i]
			// Byte slices alias driver buffers that the next Scan reuses.
			if b, ok := val.([]byte); ok {
				val = append([]byte(nil), b...)
			}
			rowMap[col] = val
		}
		results = append(results, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(errors.ErrCodeDatabaseError,
			fmt.Sprintf("statement %d failed", position), err)
	}

	return &StatementResult{
		Position:      position,
		SQL:           statement,
		Kind:          KindSelect,
		Rows:          results,
		RowCount:      len(results),
		columnDBTypes: columnDBTypes,
	}, nil
}

func runModify(ctx context.Context, tx *sql.Tx, position int, statement string) (*StatementResult, error) {
	res, err := tx.ExecContext(ctx, statement)
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeDatabaseError,
			fmt.Sprintf("statement %d failed", position), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.WrapError(errors.ErrCodeDatabaseError,
			fmt.Sprintf("statement %d failed", position), err)
	}

	return &StatementResult{
		Position:     position,
		SQL:          statement,
		Kind:         KindModify,
		AffectedRows: affected,
	}, nil
}

func allSelects(statements []string) bool {
	for _, statement := range statements {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		if !isSelect(statement) {
			return false
		}
	}
	return true
}
