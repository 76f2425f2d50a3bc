// Package config handles process configuration via environment variables.
// The run document (apps, modes, windows) lives in the rundoc subpackage
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
)

// Conf is a namespaced view over environment variables (e.g. "CORE_REVIEWS_")
// Use New() for global access, or Prefix("SERVICE_PGSQL_") for module scopes
type Conf struct {
	prefix string
	log    *logger.Logger
}

// New creates a root Conf (no prefix, silent fallbacks)
func New() Conf { return Conf{} }

// WithLogger returns a copy that reports fallbacks on l
func (c Conf) WithLogger(l logger.Logger) Conf {
	c.log = &l
	return c
}

// Prefix creates a child Conf with an additional prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, log: c.log} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) get(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

func (c Conf) warn(key, value, msg string) {
	if c.log == nil {
		return
	}
	c.log.Warn().Str("key", c.key(key)).Str("value", value).Msg(msg)
}

func (c Conf) missing(key string) {
	panic(perr.WithField(perr.Newf(perr.ErrorCodeInvalidArgument, "missing required env %s", c.key(key)), c.key(key)))
}

func (c Conf) invalid(key, value, want string) {
	panic(perr.WithField(perr.Newf(perr.ErrorCodeInvalidArgument, "invalid %s value %q for %s", want, value, c.key(key)), c.key(key)))
}

// MustString panics if the given key is missing or empty
func (c Conf) MustString(key string) string {
	v := c.get(key)
	if v == "" {
		c.missing(key)
	}
	return v
}

// MustInt panics if the given key is missing, empty, or not an int
func (c Conf) MustInt(key string) int {
	s := c.MustString(key)
	v, err := strconv.Atoi(s)
	if err != nil {
		c.invalid(key, s, "int")
	}
	return v
}

// MustDuration panics if the given key is missing, empty, or not a valid duration
func (c Conf) MustDuration(key string) time.Duration {
	s := c.MustString(key)
	d, err := time.ParseDuration(s)
	if err != nil {
		c.invalid(key, s, "duration")
	}
	return d
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v := c.get(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def if missing/empty; warns and returns def if invalid
func (c Conf) MayInt(key string, def int) int {
	s := c.get(key)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	c.warn(key, s, "invalid int; using default")
	return def
}

// MayFloat64 returns the value or def if missing/empty; warns and returns def if invalid
func (c Conf) MayFloat64(key string, def float64) float64 {
	s := c.get(key)
	if s == "" {
		return def
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	c.warn(key, s, "invalid float64; using default")
	return def
}

// MayBool returns the value or def if missing/empty; warns and returns def if invalid
func (c Conf) MayBool(key string, def bool) bool {
	s := c.get(key)
	if s == "" {
		return def
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	c.warn(key, s, "invalid bool; using default")
	return def
}

// MayDuration returns the value or def if missing/empty; warns and returns def if invalid
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.get(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	c.warn(key, s, "invalid duration; using default")
	return def
}

// MayCSV returns a slice of strings from a comma-separated env var; def if missing/empty
func (c Conf) MayCSV(key string, def []string) []string {
	s := c.get(key)
	if s == "" {
		return def
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the lower-cased value if it is one of allowed, def if empty; panics otherwise
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	c.invalid(key, v, "enum ("+strings.Join(allowed, "|")+")")
	return ""
}
