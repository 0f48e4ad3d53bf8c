package main

import (
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	ServiceConfig struct {
		Environment string `env:"SENTRY_ENVIRONMENT" env-default:"development"`
		Port        int    `env:"PORT" env-default:"8080"`
		LogLevel    string `env:"CALLTRACE_LOG_LEVEL" env-default:"info"`

		SentryDSN string `env:"SENTRY_DSN"`

		ReportsBucketURL string `env:"CALLTRACE_REPORTS_BUCKET_URL" env-default:"mem://"`

		// Sources are read from the bucket when it's set, from the local
		// file system otherwise.
		SourcesBucketURL string `env:"CALLTRACE_SOURCES_BUCKET_URL"`
		SourcesPrefix    string `env:"CALLTRACE_SOURCES_PREFIX"`
		SourcesRoot      string `env:"CALLTRACE_SOURCES_ROOT"`
		LineCacheSize    int    `env:"CALLTRACE_LINE_CACHE_SIZE" env-default:"256"`

		DumpBufferSize int `env:"CALLTRACE_DUMP_BUFFER_SIZE" env-default:"65536"`

		ReportsKafkaBrokers []string `env:"CALLTRACE_REPORTS_KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
		ReportsKafkaTopic   string   `env:"CALLTRACE_REPORTS_KAFKA_TOPIC" env-default:"calltrace-reports"`
	}
)

func readServiceConfig() (ServiceConfig, error) {
	var c ServiceConfig
	err := cleanenv.ReadEnv(&c)
	return c, err
}
