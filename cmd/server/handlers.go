package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lychee-technology/sift"
	"github.com/lychee-technology/sift/internal"
)

// handleSearch handles POST /api/v1/search: the authoritative pipeline.
// The resolved filter is repaired against the live schema, evaluated,
// written back to the store as the entity's filtered view, and returned
// with its provenance tag.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sift.SearchRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	requestID := uuid.New()
	rows := s.store.Rows(req.Entity)
	schema := sift.InferSchema(rows, s.cfg.Query.MaxSamples)
	req.Schema = schema

	res, err := s.pipeline.Resolve(r.Context(), req)
	if err != nil {
		writeSiftError(w, err)
		return
	}

	repairOpts := internal.RepairOptions{FuzzyThreshold: s.cfg.Query.FuzzyThreshold}
	filter := internal.Repair(res.Filter, schema, repairOpts)
	matched := sift.Apply(rows, filter)

	// Second chance: a zero-result strict equality is often an equality
	// against a multi-valued or free-text cell.
	if len(matched) == 0 && s.cfg.Query.SoftenOnEmpty {
		repairOpts.Soften = true
		softened := internal.Repair(res.Filter, schema, repairOpts)
		if resoftened := sift.Apply(rows, softened); len(resoftened) > 0 {
			filter = softened
			matched = resoftened
		}
	}

	s.store.SetView(req.Entity, &internal.FilteredView{
		Name:   internal.NormalizeQuery(req.Text),
		Filter: filter,
		Source: res.Source,
		Rows:   matched,
	})

	zap.S().Infow("search resolved",
		"requestId", requestID,
		"entity", req.Entity,
		"source", res.Source,
		"cached", res.Cached,
		"matched", len(matched),
	)

	writeSuccess(w, http.StatusOK, sift.SearchResponse{
		Kind:   "filter",
		Entity: req.Entity,
		Filter: filter,
		Source: res.Source,
	})
}

// handlePreview handles POST /api/v1/preview: the instant optimistic
// heuristic shown while the authoritative pipeline runs.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sift.SearchRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}
	if !req.Entity.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown entity %q", req.Entity))
		return
	}

	rows := s.store.Rows(req.Entity)
	req.Schema = sift.InferSchema(rows, s.cfg.Query.MaxSamples)

	node := s.pipeline.Preview(req)
	matched := 0
	if node != nil {
		matched = len(sift.Apply(rows, node))
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"kind":    "preview",
		"entity":  req.Entity,
		"filter":  node,
		"matched": matched,
	})
}

// handleRows handles PUT/GET /api/v1/rows/{entity}: loading base rows and
// reading back the current filtered view.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	entity, err := parseEntityPath(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPut:
		var rows []sift.Row
		if err := readJSONBody(r, &rows); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
			return
		}
		s.store.SetRows(entity, rows)
		writeSuccess(w, http.StatusOK, map[string]any{
			"entity": entity,
			"count":  len(rows),
		})
	case http.MethodGet:
		if view, ok := s.store.View(entity); ok {
			writeSuccess(w, http.StatusOK, view)
			return
		}
		writeSuccess(w, http.StatusOK, &internal.FilteredView{
			Rows: s.store.Rows(entity),
		})
	case http.MethodDelete:
		s.store.ClearView(entity)
		writeSuccess(w, http.StatusOK, map[string]any{"entity": entity, "cleared": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHealth reports liveness plus the AI capability probe result.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "ai": "disabled"}
	if s.ai != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ai.Probe(ctx); err != nil {
			status["ai"] = "unreachable"
		} else {
			status["ai"] = "ok"
		}
	}
	writeSuccess(w, http.StatusOK, status)
}
