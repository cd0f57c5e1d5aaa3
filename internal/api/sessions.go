package api

import (
	"net/http"

	"github.com/rendis/graphcalc/internal/diagram"
	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/internal/session"
	"github.com/rendis/graphcalc/pkg/schema"
)

type sessionView struct {
	SessionID   string         `json:"session_id"`
	Rules       []session.Rule `json:"rules"`
	Definitions []string       `json:"definitions"`
}

func viewOf(s *resolver.Session) sessionView {
	rules := s.Rules()
	out := sessionView{
		SessionID:   s.ID(),
		Rules:       make([]session.Rule, len(rules)),
		Definitions: s.Definitions(),
	}
	for i, r := range rules {
		out.Rules[i] = session.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	return out
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.deps.Sessions.IDs()})
}

// handleCreateSession opens a session. An optional body adds rules on top of
// the defaults.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Rules []session.Rule `json:"rules"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &body); err != nil {
			writeError(w, err)
			return
		}
	}

	id, err := s.deps.Sessions.Create(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	var view sessionView
	err = s.deps.Sessions.With(ctx, id, func(sess *resolver.Session) error {
		for _, rule := range body.Rules {
			if res := s.deps.Sessions.Resolver().AddSubRule(ctx, sess, rule.Pattern, rule.Replacement); !res.OK {
				return res.Err
			}
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		_ = s.deps.Sessions.Close(ctx, id)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var view sessionView
	err := s.deps.Sessions.With(r.Context(), r.PathValue("id"), func(sess *resolver.Session) error {
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Sessions.Close(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "closed": true})
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithSessionID(r.Context(), r.PathValue("id"))

	var body session.Rule
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := required("pattern", body.Pattern); err != nil {
		writeError(w, err)
		return
	}

	var view sessionView
	err := s.deps.Sessions.With(ctx, r.PathValue("id"), func(sess *resolver.Session) error {
		if res := s.deps.Sessions.Resolver().AddSubRule(ctx, sess, body.Pattern, body.Replacement); !res.OK {
			return res.Err
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExecute runs one expression, or a batch in order. A batch always
// answers 200 with a result per statement.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithSessionID(r.Context(), r.PathValue("id"))

	var body struct {
		Expression  string   `json:"expression"`
		Expressions []string `json:"expressions"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	batch := body.Expressions != nil
	if !batch {
		if err := required("expression", body.Expression); err != nil {
			writeError(w, err)
			return
		}
	}

	var results []schema.Result
	err := s.deps.Sessions.With(ctx, r.PathValue("id"), func(sess *resolver.Session) error {
		rv := s.deps.Sessions.Resolver()
		if batch {
			results = rv.ExecuteAll(ctx, sess, body.Expressions)
			return nil
		}
		res := rv.Execute(ctx, sess, body.Expression)
		if !res.OK {
			return res.Err
		}
		results = []schema.Result{res}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if batch {
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}
	writeJSON(w, http.StatusOK, results[0])
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithSessionID(r.Context(), r.PathValue("id"))

	var body struct {
		Expression string `json:"expression"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := required("expression", body.Expression); err != nil {
		writeError(w, err)
		return
	}

	var res schema.Result
	err := s.deps.Sessions.With(ctx, r.PathValue("id"), func(sess *resolver.Session) error {
		res = s.deps.Sessions.Resolver().ForceResolve(ctx, sess, body.Expression)
		if !res.OK {
			return res.Err
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDiagram renders the dependency graph of a session's definitions.
// Text formats come back in the envelope; images are written raw.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithSessionID(r.Context(), r.PathValue("id"))
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "mermaid"
	}
	switch format {
	case "ascii", "mermaid", "png", "svg":
	default:
		writeError(w, schema.NewErrorf(schema.ErrCodeValidation, "format must be ascii, mermaid, png or svg, got %q", format))
		return
	}

	var model *diagram.DiagramModel
	err := s.deps.Sessions.With(ctx, r.PathValue("id"), func(sess *resolver.Session) error {
		model = diagram.Build(sess, s.deps.Sessions.Resolver().IsExternal)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "ascii":
		writeJSON(w, http.StatusOK, map[string]any{"format": format, "diagram": diagram.RenderASCII(model)})
	case "mermaid":
		writeJSON(w, http.StatusOK, map[string]any{"format": format, "diagram": diagram.RenderMermaid(model)})
	default:
		img, err := diagram.RenderImage(ctx, model, diagram.ImageFormat(format))
		if err != nil {
			writeError(w, err)
			return
		}
		contentType := "image/png"
		if format == "svg" {
			contentType = "image/svg+xml"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	}
}
