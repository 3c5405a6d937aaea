package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

func (c DatabaseConfig) driver() string {
	if c.Driver == "" {
		return DriverMySQL
	}
	return c.Driver
}

func mysqlDSN(c DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC&charset=utf8mb4",
		c.Username, c.Password, c.Host, c.Port, c.DBName)
}

// sqliteDSN opens write transactions with BEGIN IMMEDIATE so concurrent
// claims queue on the busy timeout instead of failing on lock upgrade.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}

// Connect opens and pings the configured database.
func Connect(c DatabaseConfig) (*sql.DB, error) {
	switch c.driver() {
	case DriverMySQL:
		db, err := sql.Open(DriverMySQL, mysqlDSN(c))
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		db.SetMaxOpenConns(80)
		db.SetMaxIdleConns(20)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return db, nil
	case DriverSQLite:
		return OpenSQLite(c.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = "lims.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open(DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(8)
	return db, nil
}
