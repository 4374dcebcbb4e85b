package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool

	// RedisAddr enables the rendered tree cache when not empty.
	RedisAddr string
	CacheTTL  time.Duration

	// AdminUser is created, or has its password reset, at startup when
	// AdminPassword is set.
	AdminUser     string
	AdminPassword string
}

func ParseFlags() (cfg Config, err error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (cfg Config, err error) {
	flags := flag.NewFlagSet("quick-fields", flag.ContinueOnError)

	var host string
	flags.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flags.UintVar(&port, "port", 80, "listen port number (default 80)")
	flags.StringVar(&cfg.DBUrl, "db-url", "qfields.sqlite", "path to SQLite3 DB file (default qfields.sqlite)")
	flags.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flags.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds (default 120)")
	flags.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address for the rendered fields cache (disabled when empty)")
	var cacheTTL uint
	flags.UintVar(&cacheTTL, "cache-ttl", 600, "rendered fields cache TTL in seconds (default 600)")
	flags.StringVar(&cfg.AdminUser, "admin-user", "admin", "admin account name (default admin)")
	flags.StringVar(&cfg.AdminPassword, "admin-password", os.Getenv("QFIELDS_ADMIN_PASSWORD"), "admin account password, set at startup (env QFIELDS_ADMIN_PASSWORD)")

	if err = flags.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
