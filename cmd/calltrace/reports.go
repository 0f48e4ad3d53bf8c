package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"gocloud.dev/gcerrors"

	"github.com/getsentry/calltrace/internal/httputil"
	"github.com/getsentry/calltrace/internal/report"
	"github.com/getsentry/calltrace/internal/storageutil"
)

type PostReportResponse struct {
	ReportID string `json:"report_id"`
}

func (e *environment) postReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	s := sentry.StartSpan(ctx, "capture")
	s.Description = "Capture and resolve every goroutine"
	stacks, err := e.stacks.Stacks()
	var rep report.Report
	if err == nil {
		rep, err = report.New(e.config.Environment, release, stacks, e.resolver)
	}
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	hub.Scope().SetTag("report_id", rep.ID)
	hub.Scope().SetContext("Report", map[string]interface{}{
		"goroutines": len(rep.Goroutines),
		"release":    rep.Release,
	})

	s = sentry.StartSpan(ctx, "gcs.write")
	s.Description = "Write report to storage"
	err = storageutil.CompressedWrite(ctx, e.storage, rep.StoragePath(), rep)
	s.Finish()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// This is a transient error, the client can retry
			w.WriteHeader(http.StatusTooManyRequests)
		} else {
			hub.CaptureException(err)
			if code := gcerrors.Code(err); code == gcerrors.FailedPrecondition {
				w.WriteHeader(http.StatusPreconditionFailed)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}
		return
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	s.Description = "Marshal report Kafka message"
	b, err := json.Marshal(rep.KafkaMessage())
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "processing")
	s.Description = "Send report to Kafka"
	err = e.reportsWriter.WriteMessages(ctx, kafka.Message{
		Topic: e.config.ReportsKafkaTopic,
		Key:   []byte(rep.ID),
		Value: b,
	})
	s.Finish()
	if err != nil {
		// The report is stored, only the notification is lost.
		hub.CaptureException(err)
		log.Err(err).Str("report_id", rep.ID).Msg("couldn't publish report")
	}

	b, err = json.Marshal(PostReportResponse{ReportID: rep.ID})
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(b)
}

// readReport loads the report named in the request and writes the error
// status when it can't.
func (e *environment) readReport(w http.ResponseWriter, r *http.Request) (report.Report, bool) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)

	rawReportID := ps.ByName("report_id")
	reportID, err := uuid.Parse(rawReportID)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return report.Report{}, false
	}
	hub.Scope().SetTag("report_id", rawReportID)

	var rep report.Report
	s := sentry.StartSpan(ctx, "gcs.read")
	s.Description = "Read report from storage"
	err = storageutil.UnmarshalCompressed(ctx, e.storage, report.StoragePath(e.config.Environment, reportID.String()), &rep)
	s.Finish()
	if err != nil {
		if errors.Is(err, storageutil.ErrObjectNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return report.Report{}, false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusTooManyRequests)
			return report.Report{}, false
		}
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return report.Report{}, false
	}
	return rep, true
}

func (e *environment) getReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	rep, ok := e.readReport(w, r)
	if !ok {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, rep.Traceback())
	case "", "json":
		s := sentry.StartSpan(ctx, "json.marshal")
		defer s.Finish()
		b, err := json.Marshal(rep)
		if err != nil {
			hub.CaptureException(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	default:
		http.Error(w, "unknown format "+format, http.StatusBadRequest)
	}
}

func (e *environment) getReportGoroutine(w http.ResponseWriter, r *http.Request) {
	ps := httprouter.ParamsFromContext(r.Context())
	id, logger, ok := httputil.GetUintParameter(w, ps, "goroutine_id")
	if !ok {
		return
	}
	rep, ok := e.readReport(w, r)
	if !ok {
		return
	}
	g, exists := rep.Goroutine(id)
	if !exists {
		logger.Debug().Str("report_id", rep.ID).Msg("goroutine not found in report")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, g.Traceback())
}
