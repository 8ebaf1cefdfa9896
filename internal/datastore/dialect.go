package datastore

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/batatlas/batatlas/internal/conf"
	"github.com/batatlas/batatlas/internal/errors"
)

// Supported datastore types.
const (
	TypeSQLite   = "sqlite"
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
)

// dbConnectTimeout bounds connection setup and single reads on MySQL.
const dbConnectTimeout = "30s"

// dialector returns the GORM dialector for settings and a log-safe
// description of the target.
func dialector(settings *conf.DatastoreSettings) (gorm.Dialector, string, error) {
	switch settings.Type {
	case TypeSQLite, "":
		path := settings.SQLite.Path
		if path == "" {
			return nil, "", errors.Newf("sqlite path is empty").
				Component("datastore").
				Category(errors.CategoryConfiguration).
				Build()
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("path", dir).
					Build()
			}
		}
		return sqlite.Open(path), path, nil

	case TypeMySQL:
		dsn := mysqlDSN(&settings.MySQL)
		return gormmysql.Open(dsn), net.JoinHostPort(settings.MySQL.Host, settings.MySQL.Port), nil

	case TypePostgres:
		dsn := postgresDSN(&settings.Postgres)
		return postgres.Open(dsn), net.JoinHostPort(settings.Postgres.Host, settings.Postgres.Port), nil

	default:
		return nil, "", errors.Newf("unsupported datastore type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// mysqlDSN builds the DSN with mysql.Config so credentials are escaped.
func mysqlDSN(s *conf.MySQLSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{
		"charset":     "utf8mb4",
		"timeout":     dbConnectTimeout,
		"readTimeout": dbConnectTimeout,
	}
	return cfg.FormatDSN()
}

// postgresDSN builds a URL-form DSN understood by pgx.
func postgresDSN(s *conf.PostgresSettings) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.Username, s.Password),
		Host:   net.JoinHostPort(s.Host, s.Port),
		Path:   "/" + s.Database,
	}
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = fmt.Sprintf("sslmode=%s", url.QueryEscape(sslMode))
	return u.String()
}
