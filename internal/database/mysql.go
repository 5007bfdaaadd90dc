package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers
const (
	mysqlAccessDenied    = 1045
	mysqlBadDB           = 1049
	mysqlDBExists        = 1007
	mysqlTableExists     = 1050
	mysqlUnknownTable    = 1051
	mysqlDupKeyName      = 1061
	mysqlCantDropField   = 1091
	mysqlNoSuchTable     = 1146
	mysqlDBDropNotExists = 1008
)

// MySQL is the MySQL/MariaDB dialect
type MySQL struct{}

func (MySQL) Name() string { return models.DriverMySQL }

func mysqlConfig(cfg models.Database, selectDatabase bool) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = models.DefaultPort(models.DriverMySQL)
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	if selectDatabase {
		mc.DBName = cfg.Database
	}
	mc.ParseTime = true
	mc.Timeout = 30 * time.Second
	return mc
}

func (MySQL) Open(cfg models.Database, selectDatabase bool) (*sql.DB, error) {
	connector, err := mysql.NewConnector(mysqlConfig(cfg, selectDatabase))
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) UpsertClause(_ string, update []string) string {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

func (d MySQL) CreateDatabaseSQL(name string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", d.QuoteIdent(name))
}

func (MySQL) ForeignKeyToggles() (string, string) {
	return "SET FOREIGN_KEY_CHECKS = 0", "SET FOREIGN_KEY_CHECKS = 1"
}

func (MySQL) DropViewSQL(name string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s", name)
}

func (MySQL) DropTableSQL(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", name)
}

func (MySQL) StatementSavepoints() bool { return false }

func (MySQL) BackslashEscapes() bool { return true }

func (MySQL) IsBenign(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDBExists, mysqlTableExists, mysqlUnknownTable, mysqlDupKeyName,
			mysqlCantDropField, mysqlNoSuchTable, mysqlDBDropNotExists:
			return true
		}
		return false
	}
	return messageIsBenign(err)
}

func (MySQL) ConnectErrorCode(err error) apperrors.ErrorCode {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlAccessDenied:
			return apperrors.ErrCodeAuthenticationFailed
		case mysqlBadDB:
			return apperrors.ErrCodeDatabaseMissing
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ErrCodeConnectionTimeout
	}
	return apperrors.ErrCodeConnectionFailed
}
