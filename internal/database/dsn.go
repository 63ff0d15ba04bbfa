package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/saltyorg/dbscope/internal/config"
)

// Supported values for DATABASE_DRIVER
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
)

// normalizeDriver maps an unset driver to mysql
func normalizeDriver(name string) string {
	if name == "" {
		return DriverMySQL
	}
	return name
}

// dsnFor returns the database/sql driver name and DSN for cfg
func dsnFor(cfg config.DatabaseConfig) (string, string, error) {
	switch normalizeDriver(cfg.Driver) {
	case DriverMySQL:
		return "mysql", mysqlDSN(cfg), nil
	case DriverPostgres:
		return "pgx", postgresDSN(cfg), nil
	case DriverSQLite:
		return "sqlite", sqliteDSN(cfg), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func mysqlDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = hostPort(cfg.Host, cfg.Port, defaultMySQLPort)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout
	if cfg.Charset != "" {
		mc.Params = map[string]string{"charset": cfg.Charset}
	}
	return mc.FormatDSN()
}

func postgresDSN(cfg config.DatabaseConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   hostPort(cfg.Host, cfg.Port, defaultPostgresPort),
		Path:   "/" + cfg.Name,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if secs := int(cfg.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// sqliteDSN treats the database name as a file path
func sqliteDSN(cfg config.DatabaseConfig) string {
	return cfg.Name + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func hostPort(host string, port, defaultPort int) string {
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
