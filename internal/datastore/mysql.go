package datastore

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/logger"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	m := settings.Output.MySQL
	switch {
	case m.Host == "":
		return validationError("mysql host is required", "output.mysql.host", "")
	case m.Database == "":
		return validationError("mysql database is required", "output.mysql.database", "")
	case m.Username == "":
		return validationError("mysql username is required", "output.mysql.username", "")
	}
	return nil
}

// mysqlDSN builds the driver DSN with UTC timestamps and utf8mb4.
func mysqlDSN(m conf.MySQLSettings) string {
	port := m.Port
	if port == "" {
		port = "3306"
	}
	cfg := mysql.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects and migrates the schema.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}
	store.log = GetLogger().Module("mysql")

	m := store.Settings.Output.MySQL
	db, err := gorm.Open(gormmysql.Open(mysqlDSN(m)), &gorm.Config{Logger: createGormLogger(store.log)})
	if err != nil {
		store.log.Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.String("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return dbError(err, "open", "db_type", "mysql")
	}

	store.DB = db
	return performAutoMigration(db, store.log, "mysql")
}

// Close closes the connection pool.
func (store *MySQLStore) Close() error {
	return store.closeDB()
}
