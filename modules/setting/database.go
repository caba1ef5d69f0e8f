// Copyright 2014 The Gogs Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package setting

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	ini "gopkg.in/ini.v1"
)

// DatabaseType is the xorm driver family of the configured database
type DatabaseType string

func (t DatabaseType) String() string {
	return string(t)
}

// IsSQLite3 returns true for the embedded database
func (t DatabaseType) IsSQLite3() bool {
	return t == "sqlite3"
}

// IsMySQL returns true for MySQL and MariaDB
func (t DatabaseType) IsMySQL() bool {
	return t == "mysql"
}

// IsPostgreSQL returns true for PostgreSQL
func (t DatabaseType) IsPostgreSQL() bool {
	return t == "postgres"
}

// SupportedDatabaseTypes includes all XORM supported databases type, sqlite3 maybe added by `database_sqlite3.go`
var SupportedDatabaseTypes = []string{"mysql", "postgres", "sqlite3"}

// DatabaseTypeNames contains the friendly names for all database types
var DatabaseTypeNames = map[string]string{"mysql": "MySQL", "postgres": "PostgreSQL", "sqlite3": "SQLite3"}

// Database holds the database settings
var Database = struct {
	Type              DatabaseType
	Host              string
	Name              string
	User              string
	Passwd            string
	Schema            string
	SSLMode           string
	Path              string
	LogSQL            bool
	MysqlCharset      string
	CharsetCollation  string
	Timeout           int // seconds
	SQLiteJournalMode string
	DBConnectRetries  int
	DBConnectBackoff  time.Duration
	MaxIdleConns      int
	MaxOpenConns      int
	ConnMaxLifetime   time.Duration
	IterateBufferSize int
	LockTimeout       time.Duration
}{
	Type:              "sqlite3",
	Timeout:           500,
	IterateBufferSize: 50,
	LockTimeout:       5 * time.Second,
}

func loadDatabaseFrom(rootCfg *ini.File) error {
	sec := rootCfg.Section("database")
	Database.Type = DatabaseType(sec.Key("DB_TYPE").MustString("sqlite3"))
	if Database.Type == "postgresql" {
		Database.Type = "postgres"
	}
	if Database.Type == "sqlite" {
		Database.Type = "sqlite3"
	}
	found := false
	for _, t := range SupportedDatabaseTypes {
		if t == Database.Type.String() {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unsupported database type %q", Database.Type)
	}

	Database.Host = sec.Key("HOST").String()
	Database.Name = sec.Key("NAME").String()
	Database.User = sec.Key("USER").String()
	Database.Passwd = sec.Key("PASSWD").String()
	Database.Schema = sec.Key("SCHEMA").String()
	Database.SSLMode = sec.Key("SSL_MODE").MustString("disable")
	Database.MysqlCharset = sec.Key("MYSQL_CHARSET").MustString("utf8mb4")
	Database.CharsetCollation = sec.Key("CHARSET_COLLATION").String()

	Database.Path = sec.Key("PATH").MustString(filepath.Join(AppDataPath, "taiga.db"))
	Database.Timeout = sec.Key("SQLITE_TIMEOUT").MustInt(500)
	Database.SQLiteJournalMode = sec.Key("SQLITE_JOURNAL_MODE").MustString("")

	Database.MaxIdleConns = sec.Key("MAX_IDLE_CONNS").MustInt(2)
	if Database.Type.IsMySQL() {
		Database.ConnMaxLifetime = sec.Key("CONN_MAX_LIFETIME").MustDuration(3 * time.Second)
	} else {
		Database.ConnMaxLifetime = sec.Key("CONN_MAX_LIFETIME").MustDuration(0)
	}
	Database.MaxOpenConns = sec.Key("MAX_OPEN_CONNS").MustInt(0)

	Database.IterateBufferSize = sec.Key("ITERATE_BUFFER_SIZE").MustInt(50)
	Database.LogSQL = sec.Key("LOG_SQL").MustBool(false)
	Database.DBConnectRetries = sec.Key("DB_RETRIES").MustInt(10)
	Database.DBConnectBackoff = sec.Key("DB_RETRY_BACKOFF").MustDuration(3 * time.Second)
	Database.LockTimeout = sec.Key("LOCK_TIMEOUT").MustDuration(5 * time.Second)
	return nil
}

// DBConnStr returns database connection string
func DBConnStr() (string, error) {
	var connStr string
	paramSep := "?"
	if strings.Contains(Database.Name, paramSep) {
		paramSep = "&"
	}
	switch Database.Type {
	case "mysql":
		connType := "tcp"
		if len(Database.Host) > 0 && Database.Host[0] == '/' { // looks like a unix socket
			connType = "unix"
		}
		tls := Database.SSLMode
		if tls == "disable" { // allow (Postgres-inspired) default value to work in MySQL
			tls = "false"
		}
		connStr = fmt.Sprintf("%s:%s@%s(%s)/%s%sparseTime=true&tls=%s",
			Database.User, Database.Passwd, connType, Database.Host, Database.Name, paramSep, tls)
	case "postgres":
		connStr = getPostgreSQLConnectionString(Database.Host, Database.User, Database.Passwd, Database.Name, Database.SSLMode)
	case "sqlite3":
		if Database.Path == ":memory:" {
			return "file::memory:?_pragma=foreign_keys(0)&_pragma=busy_timeout(" + fmt.Sprint(Database.Timeout) + ")", nil
		}
		journalMode := ""
		if Database.SQLiteJournalMode != "" {
			journalMode = "&_pragma=journal_mode(" + Database.SQLiteJournalMode + ")"
		}
		connStr = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_txlock=immediate%s",
			Database.Path, Database.Timeout, journalMode)
	default:
		return "", errors.New("unknown database type")
	}

	return connStr, nil
}

// parsePostgreSQLHostPort parses given input in various forms defined in
// https://www.postgresql.org/docs/current/static/libpq-connect.html#LIBPQ-CONNSTRING
// and returns proper host and port number.
func parsePostgreSQLHostPort(info string) (host, port string) {
	if h, p, err := net.SplitHostPort(info); err == nil {
		host, port = h, p
	} else {
		// treat the "info" as "host", if it's an IPv6 address, remove the wrapper
		host = info
		if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	}

	// set fallback values
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "5432"
	}
	return host, port
}

func getPostgreSQLConnectionString(dbHost, dbUser, dbPasswd, dbName, dbsslMode string) (connStr string) {
	dbName, dbParam, _ := strings.Cut(dbName, "?")
	host, port := parsePostgreSQLHostPort(dbHost)
	connURL := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbUser, dbPasswd),
		Host:     net.JoinHostPort(host, port),
		Path:     dbName,
		OmitHost: false,
		RawQuery: dbParam,
	}
	query := connURL.Query()
	if strings.HasPrefix(host, "/") { // looks like a unix socket
		query.Add("host", host)
		connURL.Host = ":" + port
	}
	query.Set("sslmode", dbsslMode)
	connURL.RawQuery = query.Encode()
	return connURL.String()
}
