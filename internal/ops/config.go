package ops

import (
	"os"
	"strings"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/errors"
	"bridge/internal/pool"
	"bridge/internal/rest"
	"bridge/internal/session"
	"bridge/pkg/exception"

	"github.com/bytedance/sonic"
)

const (
	EnvClientID     = "DERIBIT_CLIENT_ID"
	EnvClientSecret = "DERIBIT_CLIENT_SECRET"

	DefaultSessionURL = "wss://test.deribit.com/ws/api/v2"
	DefaultHTTPAddr   = ":18080"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Session   SessionConfig   `json:"session"`
	REST      RESTConfig      `json:"rest"`
	HTTP      HTTPConfig      `json:"http"`
	Journal   JournalConfig   `json:"journal"`
	Profiling ProfilingConfig `json:"profiling"`
}

// SessionConfig describes the persistent websocket session.
type SessionConfig struct {
	URL                string `json:"url"`
	ConnectTimeout     string `json:"connectTimeout"`
	CallTimeout        string `json:"callTimeout"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify"`
}

// RESTConfig describes the one-shot HTTP channel and its worker pool.
type RESTConfig struct {
	BaseURL        string `json:"baseUrl"`
	Workers        int    `json:"workers"`
	QueueDepth     int    `json:"queueDepth"`
	RequestTimeout string `json:"requestTimeout"`
}

// HTTPConfig describes the front door listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// JournalConfig enables the call journal when DSN is set.
type JournalConfig struct {
	DSN string `json:"dsn"`
}

// ProfilingConfig enables continuous profiling when ServerAddress is set.
type ProfilingConfig struct {
	ServerAddress string `json:"serverAddress"`
	AppName       string `json:"appName"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Credentials        adapter.Credentials
	SessionURL         string
	InsecureSkipVerify bool
	Session            session.Config
	REST               rest.Config
	Pool               pool.Config
	HTTPAddr           string
	JournalDSN         string
	Profiling          ProfilingConfig
}

// Load reads a JSON config file and resolves it. An empty path loads the defaults.
// Credentials always come from the environment.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrapf(exception.ErrInvalidArgument, "decode config %s: %s", path, err.Error())
		}
	}
	return Resolve(cfg, os.Getenv)
}

// Resolve fills defaults and validates cfg. getenv supplies the credentials.
func Resolve(cfg FileConfig, getenv func(string) string) (Loaded, error) {
	connectTimeout, err := parseDuration("session.connectTimeout", cfg.Session.ConnectTimeout, session.DefaultConnectTimeout)
	if err != nil {
		return Loaded{}, err
	}

	callTimeout, err := parseDuration("session.callTimeout", cfg.Session.CallTimeout, session.DefaultCallTimeout)
	if err != nil {
		return Loaded{}, err
	}

	requestTimeout, err := parseDuration("rest.requestTimeout", cfg.REST.RequestTimeout, rest.DefaultRequestTimeout)
	if err != nil {
		return Loaded{}, err
	}

	if cfg.REST.Workers < 0 || cfg.REST.QueueDepth < 0 {
		return Loaded{}, errors.Wrapf(exception.ErrPoolInvalidConfig, "rest.workers %d, rest.queueDepth %d", cfg.REST.Workers, cfg.REST.QueueDepth)
	}

	if cfg.Session.URL == "" {
		cfg.Session.URL = DefaultSessionURL
	}

	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = rest.DefaultBaseURL
	}

	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}

	if cfg.Profiling.AppName == "" {
		cfg.Profiling.AppName = "bridge.gateway"
	}

	creds := adapter.NewCredentials(
		strings.TrimSpace(getenv(EnvClientID)),
		strings.TrimSpace(getenv(EnvClientSecret)),
	)

	return Loaded{
		Credentials:        creds,
		SessionURL:         cfg.Session.URL,
		InsecureSkipVerify: cfg.Session.InsecureSkipVerify,
		Session: session.Config{
			Credentials:    creds,
			ConnectTimeout: connectTimeout,
			CallTimeout:    callTimeout,
		},
		REST: rest.Config{
			BaseURL:            cfg.REST.BaseURL,
			RequestTimeout:     requestTimeout,
			InsecureSkipVerify: cfg.Session.InsecureSkipVerify,
		},
		Pool: pool.Config{
			Workers:    cfg.REST.Workers,
			QueueDepth: cfg.REST.QueueDepth,
		},
		HTTPAddr:   cfg.HTTP.Addr,
		JournalDSN: cfg.Journal.DSN,
		Profiling:  cfg.Profiling,
	}, nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(exception.ErrInvalidArgument, "%s: %s", field, err.Error())
	}
	if d <= 0 {
		return 0, errors.Wrapf(exception.ErrInvalidArgument, "%s must be positive", field)
	}
	return d, nil
}
