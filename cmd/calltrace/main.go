package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/httputil"
	"github.com/getsentry/calltrace/internal/linecache"
	"github.com/getsentry/calltrace/internal/livestack"
	"github.com/getsentry/calltrace/internal/logutil"
)

type environment struct {
	config ServiceConfig

	stacks   livestack.Enumerator
	resolver *calltrace.Resolver

	reportsWriter KafkaWriter

	storage *blob.Bucket
	sources *blob.Bucket
}

var release string

func newEnvironment(config ServiceConfig) (*environment, error) {
	e := environment{
		config: config,
		stacks: livestack.Goroutines{BufferSize: config.DumpBufferSize},
	}

	var err error
	ctx := context.Background()
	e.storage, err = blob.OpenBucket(ctx, config.ReportsBucketURL)
	if err != nil {
		return nil, fmt.Errorf("opening reports bucket: %w", err)
	}

	var src linecache.Source = linecache.FileSystem{Root: config.SourcesRoot}
	if config.SourcesBucketURL != "" {
		e.sources, err = blob.OpenBucket(ctx, config.SourcesBucketURL)
		if err != nil {
			return nil, fmt.Errorf("opening sources bucket: %w", err)
		}
		src = linecache.Bucket{Bucket: e.sources, Prefix: config.SourcesPrefix}
	}
	lines, err := linecache.New(src, config.LineCacheSize)
	if err != nil {
		return nil, err
	}
	e.resolver = calltrace.NewResolver(lines)

	e.reportsWriter = &kafka.Writer{
		Addr:         kafka.TCP(config.ReportsKafkaBrokers...),
		Async:        true,
		Balancer:     kafka.CRC32Balancer{},
		BatchSize:    10,
		Compression:  kafka.Lz4,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	return &e, nil
}

func (e *environment) shutdown() {
	err := e.storage.Close()
	if err != nil {
		sentry.CaptureException(err)
	}
	if e.sources != nil {
		err = e.sources.Close()
		if err != nil {
			sentry.CaptureException(err)
		}
	}
	err = e.reportsWriter.Close()
	if err != nil {
		sentry.CaptureException(err)
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/goroutines", e.getGoroutines},
		{http.MethodGet, "/goroutines/:goroutine_id", e.getGoroutine},
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodGet, "/reports/:report_id", e.getReport},
		{http.MethodGet, "/reports/:report_id/goroutines/:goroutine_id", e.getReportGoroutine},
		{http.MethodGet, "/tree", e.getTree},
		{http.MethodPost, "/reports", e.postReport},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	return router, nil
}

func (e *environment) newHandler() (http.Handler, error) {
	router, err := e.newRouter()
	if err != nil {
		return nil, err
	}
	return sentryhttp.New(sentryhttp.Options{}).Handle(router), nil
}

func main() {
	config, err := readServiceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error reading the service config")
	}

	logutil.ConfigureLogger(config.LogLevel)

	env, err := newEnvironment(config)
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up environment")
	}

	err = sentry.Init(sentry.ClientOptions{
		BeforeSendTransaction: httputil.SetHTTPStatusCodeTag,
		Dsn:                   config.SentryDSN,
		EnableTracing:         true,
		Environment:           config.Environment,
		Release:               release,
		TracesSampleRate:      1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	handler, err := env.newHandler()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: handler,
	}

	waitForShutdown := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	log.Info().Int("port", config.Port).Str("environment", config.Environment).Msg("starting server")
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	// Shutdown the rest of the environment after the HTTP connections are closed
	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
