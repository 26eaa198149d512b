package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Args     conf.Args
	API      API
	Auth     Auth
	Throttle Throttle
	Callback Callback
}

type API struct {
	BaseURL string        `conf:"default:http://localhost:3000/api"`
	Timeout time.Duration `conf:"default:15s"`
}

type Auth struct {
	Token  string `conf:"mask"`
	UserID string
	Role   string `conf:"default:USER"`
}

// Throttle bounds how often the same operation may be submitted.
type Throttle struct {
	Burst    int           `conf:"default:1"`
	Interval time.Duration `conf:"default:500ms"`
	Expiry   int           `conf:"default:10"`
}

type Callback struct {
	Address         string        `conf:"default:0.0.0.0:4000"`
	CorsOrigin      string
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}
