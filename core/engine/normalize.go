package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chenhy0213/test-tool-with-db/core/shared/errors"
)

// normalizeResult converts driver-native values in a SELECT result into
// serialization-safe scalars, in place. It runs after commit: a value the
// normalizer cannot handle fails the call with SERIALIZATION_ERROR, but the
// transaction's effects stay committed.
func normalizeResult(r *StatementResult) error {
	for _, row := range r.Rows {
		for column, value := range row {
			normalized, err := normalizeValue(value, r.columnDBTypes[column])
			if err != nil {
				return err
			}
			row[column] = normalized
		}
	}
	return nil
}

func normalizeValue(value any, dbType string) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case bool:
		return v, nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case time.Time:
		return formatTemporal(v), nil
	case []byte:
		// MySQL returns DECIMAL/NUMERIC columns as byte strings; those
		// convert to float so currency-style values serialize as numbers.
		if isDecimalType(dbType) {
			f, err := strconv.ParseFloat(string(v), 64)
			if err != nil {
				return nil, errors.WrapError(errors.ErrCodeSerializationError,
					fmt.Sprintf("cannot convert %s value '%s' to float", dbType, string(v)), err)
			}
			return f, nil
		}
		return string(v), nil
	default:
		return nil, errors.NewAppError(errors.ErrCodeSerializationError,
			fmt.Sprintf("value of type %T is not serializable", value), nil)
	}
}

// formatTemporal renders temporal values as ISO-8601 text. A value at
// exactly midnight renders date-only, which is how DATE columns arrive
// when the driver parses temporals.
func formatTemporal(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

func isDecimalType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC":
		return true
	default:
		return false
	}
}
