package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/frame"
	"github.com/getsentry/calltrace/internal/httputil"
	"github.com/getsentry/calltrace/internal/traceback"
)

func (e *environment) captureViews(r *http.Request) (map[uint64]*calltrace.View, error) {
	s := sentry.StartSpan(r.Context(), "capture")
	s.Description = "Capture every goroutine"
	defer s.Finish()
	views, err := calltrace.CurrentFrames(e.stacks)
	if err != nil {
		return nil, err
	}
	s.Data = map[string]interface{}{"goroutines": len(views)}
	return views, nil
}

func (e *environment) getGoroutines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	views, err := e.captureViews(r)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s := sentry.StartSpan(ctx, "resolve")
	s.Description = "Resolve frames"
	goroutines := make(map[uint64][]frame.Frame, len(views))
	for id, v := range views {
		goroutines[id], err = traceback.Stack(v, e.resolver)
		if err != nil {
			break
		}
	}
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	defer s.Finish()
	b, err := json.Marshal(goroutines)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (e *environment) getGoroutine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)
	ps := httprouter.ParamsFromContext(ctx)
	id, logger, ok := httputil.GetUintParameter(w, ps, "goroutine_id")
	if !ok {
		return
	}
	hub.Scope().SetTag("goroutine_id", ps.ByName("goroutine_id"))

	views, err := e.captureViews(r)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	v, exists := views[id]
	if !exists {
		logger.Debug().Msg("goroutine not found")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s := sentry.StartSpan(ctx, "resolve")
	s.Description = "Format traceback"
	text, err := traceback.FormatStack(v, e.resolver)
	s.Finish()
	if err != nil {
		if errors.Is(err, calltrace.ErrResolution) {
			logger.Warn().Err(err).Msg("couldn't resolve goroutine")
		}
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}
