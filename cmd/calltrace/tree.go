package main

import (
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/nodetree"
)

func (e *environment) getTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	collapse := false
	if v := r.URL.Query().Get("collapse"); v != "" {
		var err error
		collapse, err = strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "expected a boolean for collapse", http.StatusBadRequest)
			return
		}
	}

	views, err := e.captureViews(r)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	snapshots := make(map[uint64]*calltrace.Snapshot, len(views))
	for id, v := range views {
		snapshots[id] = v.Snapshot()
	}

	s := sentry.StartSpan(ctx, "calltree")
	s.Description = "Merge goroutines into call trees"
	roots, err := nodetree.FromSnapshots(snapshots, e.resolver)
	if err == nil && collapse {
		collapsed := make([]*nodetree.Node, 0, len(roots))
		for _, n := range roots {
			collapsed = append(collapsed, n.Collapse()...)
		}
		roots = collapsed
	}
	s.Finish()
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if roots == nil {
		roots = []*nodetree.Node{}
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	defer s.Finish()
	b, err := json.Marshal(roots)
	if err != nil {
		hub.CaptureException(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
