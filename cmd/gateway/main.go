package main

import (
	"context"
	"flag"
	"os"
	"time"

	"bridge/internal/api"
	"bridge/internal/journal"
	"bridge/internal/obs"
	"bridge/internal/ops"
	"bridge/internal/rest"
	"bridge/internal/session"
	"bridge/pkg/websocket"

	"github.com/gin-gonic/gin"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	book := flag.String("book", "", "Instrument whose book.<instrument>.100ms notifications are logged")
	flag.Parse()

	if err := run(*configPath, *addr, *book); err != nil {
		logs.Errorf("gateway: %+v", err)
		os.Exit(1)
	}
}

func run(configPath, addr, book string) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		loaded.HTTPAddr = addr
	}

	if loaded.Profiling.ServerAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: loaded.Profiling.AppName,
			ServerAddress:   loaded.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	var j journal.Journal = journal.Nop{}
	if loaded.JournalDSN != "" {
		pg, err := journal.Open(journal.Option{ConnString: loaded.JournalDSN})
		if err != nil {
			return err
		}
		j = pg
	}
	defer func() {
		_ = j.Close()
	}()

	metrics := obs.NewMetrics()

	dialer, err := websocket.NewDialer(loaded.SessionURL, websocket.WithInsecureSkipVerify(loaded.InsecureSkipVerify))
	if err != nil {
		return err
	}

	sess := session.New(dialer, loaded.Session,
		session.WithMetrics(metrics),
		session.WithNotificationHandler(func(payload []byte) {
			logs.Debugf("gateway: notification %s", payload)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if loaded.Credentials.Valid() {
		if err := connect(ctx, sess, loaded.Session.ConnectTimeout); err != nil {
			return err
		}
		defer func() {
			if err := sess.Close(); err != nil {
				logs.Warnf("gateway: close session, err: %+v", err)
			}
		}()
	} else {
		logs.Warnf("gateway: %s/%s not set, session routes answer 503", ops.EnvClientID, ops.EnvClientSecret)
	}

	client, err := rest.NewClient(loaded.REST)
	if err != nil {
		return err
	}

	executor, err := rest.NewExecutor(client, loaded.Pool, metrics)
	if err != nil {
		return err
	}
	executor.Run(ctx)
	defer executor.Close()

	gin.SetMode(gin.ReleaseMode)
	server := api.New(sess, executor, j, metrics)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return server.Run(ctx, loaded.HTTPAddr)
	})

	if book != "" && sess.State() == session.StateReady {
		consumer := websocket.NewConsumer(1024, websocket.OverflowDropOldest)
		channel := "book." + book + ".100ms"
		if err := sess.Subscribe(ctx, channel, consumer); err != nil {
			logs.Warnf("gateway: subscribe %s, err: %+v", channel, err)
		} else {
			eg.Go(func() error {
				for {
					frame, ok := consumer.Next()
					if !ok {
						return nil
					}
					logs.Infof("gateway: %s %s", frame.Channel, frame.Payload)
				}
			})
			eg.Go(func() error {
				<-ctx.Done()
				consumer.Close()
				return nil
			})
			defer func() {
				_ = sess.Unsubscribe(context.Background(), channel, consumer)
			}()
		}
	}

	eg.Go(func() error {
		select {
		case <-sys.Shutdown():
			logs.Info("gateway: shutting down")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	return eg.Wait()
}

func connect(ctx context.Context, sess *session.Session, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sess.Connect(ctx); err != nil {
		return err
	}
	return sess.WaitReady(ctx)
}
