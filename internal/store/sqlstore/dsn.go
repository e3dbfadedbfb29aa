package sqlstore

import (
	"net/url"

	"github.com/go-sql-driver/mysql"
)

// DSN builds a connection string for driver from discrete settings.
func DSN(driver, host, name, user, password string) string {
	switch driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = host
		cfg.DBName = name
		cfg.User = user
		cfg.Passwd = password
		cfg.ParseTime = true
		return cfg.FormatDSN()
	default:
		u := url.URL{
			Scheme:   "postgres",
			Host:     host,
			Path:     "/" + name,
			RawQuery: "sslmode=disable",
		}
		if user != "" {
			if password != "" {
				u.User = url.UserPassword(user, password)
			} else {
				u.User = url.User(user)
			}
		}
		return u.String()
	}
}
