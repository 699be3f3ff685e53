// internal/config/database.go
package config

import (
	"net"
	"net/url"
	"strings"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// DSN returns the connection string for the configured driver. PostgreSQL
// uses the URL form so credentials with reserved characters survive.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return sqliteDSN(d.SQLitePath)
	}
	return d.postgresURL(url.UserPassword(d.User, d.Password)).String()
}

// Redacted is the DSN with the password masked, for logs.
func (d *DatabaseConfig) Redacted() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return d.postgresURL(url.UserPassword(d.User, "xxxxx")).String()
}

func (d *DatabaseConfig) postgresURL(user *url.Userinfo) *url.URL {
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	q.Set("TimeZone", "UTC")
	return &url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: q.Encode(),
	}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return path + "?" + sqlitePragmas
}
