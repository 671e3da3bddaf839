package journal

import (
	"context"
	"fmt"
	"net/url"

	"bridge/internal/adapter"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option defines connection options for PostgreSQL.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string
	Config     *gorm.Config
}

// Postgres stores records in the call_journal table.
type Postgres struct {
	db *gorm.DB
}

// Open connects and migrates the journal table.
func Open(option Option) (*Postgres, error) {
	config := option.Config
	if config == nil {
		config = &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	}

	db, err := gorm.Open(postgres.Open(option.dsn()), config)
	if err != nil {
		return nil, errors.Wrap(exception.ErrConnect, err.Error())
	}

	if err := db.AutoMigrate(&CallRecord{}); err != nil {
		return nil, errors.Wrapf(err, "migrate %s", CallRecord{}.TableName())
	}

	return &Postgres{db: db}, nil
}

// New wraps an opened connection without migrating.
func New(db *gorm.DB) (*Postgres, error) {
	if db == nil {
		return nil, exception.ErrNilInstance
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Record(ctx context.Context, channel, route string, env adapter.Envelope) error {
	rec := NewRecord(channel, route, env)
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		logs.Warnf("journal: record %s %s, err: %+v", channel, route, err)
		return err
	}
	return nil
}

// DB returns the underlying gorm.DB instance.
func (p *Postgres) DB() *gorm.DB {
	if p == nil {
		return nil
	}
	return p.db
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}

	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}

	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}

	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String()
}
