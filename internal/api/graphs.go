package api

import (
	"net/http"

	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/service"
	"github.com/rendis/graphcalc/internal/store"
)

// handleParseEquation parses one equation, optionally inside a session.
func (s *Server) handleParseEquation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Equation  string `json:"equation"`
		SessionID string `json:"session_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := required("equation", body.Equation); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.deps.Parser.ParseEquation(r.Context(), body.SessionID, body.Equation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.GraphFilter{
		Owner:        q.Get("owner"),
		NameContains: q.Get("name"),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
	}
	if where, sel := q.Get("where"), q.Get("select"); where != "" || sel != "" {
		out, err := s.deps.Query.Graphs(r.Context(), filter, where, sel)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	graphs, err := s.deps.Graphs.ListGraphs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graphs)
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var in service.GraphInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	g, err := s.deps.Graphs.CreateGraph(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithGraphID(r.Context(), r.PathValue("id"))
	g, err := s.deps.Graphs.GetGraph(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGraph(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithGraphID(r.Context(), r.PathValue("id"))
	var in service.GraphInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	g, err := s.deps.Graphs.UpdateGraph(ctx, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithGraphID(r.Context(), r.PathValue("id"))
	if err := s.deps.Graphs.DeleteGraph(ctx, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "deleted": true})
}

// handleQueryEquations lists a graph's equations, filtered by the optional
// where (CEL) and reshaped by the optional select (jq) query parameters.
func (s *Server) handleQueryEquations(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithGraphID(r.Context(), r.PathValue("id"))
	q := r.URL.Query()
	out, err := s.deps.Query.Equations(ctx, r.PathValue("id"), q.Get("where"), q.Get("select"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEquation(w http.ResponseWriter, r *http.Request) {
	var in service.EquationInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	if in.Graph != nil {
		ctx = logging.WithGraphID(ctx, *in.Graph)
	}
	eq, err := s.deps.Graphs.CreateEquation(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eq)
}

func (s *Server) handleGetEquation(w http.ResponseWriter, r *http.Request) {
	eq, err := s.deps.Graphs.GetEquation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *Server) handleUpdateEquation(w http.ResponseWriter, r *http.Request) {
	var in service.EquationInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	eq, err := s.deps.Graphs.UpdateEquation(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (s *Server) handleDeleteEquation(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Graphs.DeleteEquation(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "deleted": true})
}
