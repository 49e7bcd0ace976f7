package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParseDurationEnv reads a duration from an environment value. It accepts the
// time.ParseDuration forms ("10s", "5m") and a bare number, which is taken as
// seconds, so HTTP_READ_TIMEOUT=10 means 10s.
func ParseDurationEnv(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	// Some deploy platforms hand values through wrapped in quotes.
	if len(s) >= 2 {
		if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
			s = s[1 : len(s)-1]
		}
	}
	if s == "" {
		return 0, fmt.Errorf("duration value is empty")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("want a Go duration or a number of seconds: %w", err)
	}
	return d, nil
}

// ParseRedisURL splits a redis:// or rediss:// URL into address, password and
// DB number, the pieces redis.Options wants.
func ParseRedisURL(raw string) (addr, password string, db int, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", 0, err
	}
	switch u.Scheme {
	case "redis", "rediss":
	default:
		return "", "", 0, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", 0, fmt.Errorf("redis URL has no host")
	}
	addr = u.Host
	if u.User != nil {
		password, _ = u.User.Password()
	}
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		db, _ = strconv.Atoi(p)
	}
	return addr, password, db, nil
}

// IsPGUniqueViolation reports whether err is a unique_violation (SQLSTATE 23505).
func IsPGUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
