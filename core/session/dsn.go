package session

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/go-sql-driver/mysql"
)

// BuildDSN converts the configuration database block into a driver name and
// connection string for database/sql.
func BuildDSN(db config.DatabaseConfig) (driverName string, dsn string, err error) {
	switch db.Driver {
	case "", "mysql":
		return "mysql", buildMySQLDSN(db), nil
	case "postgres":
		return "pgx", buildPostgresDSN(db), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver '%s'", db.Driver)
	}
}

func buildMySQLDSN(db config.DatabaseConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = db.Username
	cfg.Passwd = db.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
	cfg.DBName = db.Database
	cfg.Collation = "utf8mb4_general_ci"
	// Temporal columns must scan as time.Time so result normalization can
	// render them as ISO-8601 text.
	cfg.ParseTime = true
	for key, value := range db.Params {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[key] = value
	}
	return cfg.FormatDSN()
}

func buildPostgresDSN(db config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.Username, db.Password),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Database,
	}
	query := url.Values{}
	for key, value := range db.Params {
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()
	return u.String()
}
