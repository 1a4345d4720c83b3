package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bizledger/internal/ledger"
	"bizledger/internal/render"
	"bizledger/internal/services"
)

// PreviewRequest renders an unsaved template against caller-supplied
// fields. Template uses the same loose JSON form as template uploads.
type PreviewRequest struct {
	Template json.RawMessage `json:"template"`
	Fields   render.Fields   `json:"fields"`
	// Format is "json" (default) or "html".
	Format string `json:"format"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(req.Template) == 0 || string(req.Template) == "null" {
		writeError(w, http.StatusBadRequest, "template is required")
		return
	}
	tpl, err := render.DecodeTemplate(req.Template)
	if err != nil {
		writeServiceError(w, r, badRequest("%v", err))
		return
	}

	var asHTML bool
	switch strings.ToLower(strings.TrimSpace(req.Format)) {
	case "", "json":
	case "html":
		asHTML = true
	default:
		writeError(w, http.StatusBadRequest, "unknown format "+req.Format)
		return
	}

	out, err := s.svc.Render.Preview(r.Context(), tpl, req.Fields, asHTML)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRendered(w, out, asHTML)
}

// handleRenderInvoice renders a stored invoice synchronously. The
// template query parameter picks the template; without it the first stored
// template is used.
func (s *Server) handleRenderInvoice(w http.ResponseWriter, r *http.Request) {
	asHTML, err := wantsHTML(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out, err := s.svc.Render.RenderInvoice(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(r.URL.Query().Get("template")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !asHTML {
		out.HTML = ""
	}
	writeRendered(w, out, asHTML)
}

func writeRendered(w http.ResponseWriter, out services.Rendered, asHTML bool) {
	b := NewResponse().Warnings(out.Warnings)
	if asHTML {
		b.BodyHTML(out.HTML).Write(w)
		return
	}
	b.Data(out).Write(w)
}

// RenderJobRequest optionally names the template of a render job.
type RenderJobRequest struct {
	TemplateID string `json:"template_id"`
}

func (s *Server) handleEnqueueRender(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	templateID := strings.TrimSpace(r.URL.Query().Get("template"))
	if p.IsJSON() {
		var req RenderJobRequest
		if err := p.Decode(&req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		if req.TemplateID != "" {
			templateID = strings.TrimSpace(req.TemplateID)
		}
	}

	job, err := s.svc.Render.EnqueueRender(r.Context(), chi.URLParam(r, "id"), templateID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusAccepted).
		Header("Location", "/api/v1/renders/"+job.JobID).
		Data(job).
		Write(w)
}

// handleGetRender returns a render job. With format=html a finished job is
// served as its stored page.
func (s *Server) handleGetRender(w http.ResponseWriter, r *http.Request) {
	asHTML, err := wantsHTML(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	job, err := s.svc.Render.GetRender(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if asHTML {
		if job.Status != ledger.RenderDone {
			writeError(w, http.StatusConflict, "render job is "+job.Status)
			return
		}
		NewResponse().Warnings(job.Warnings).BodyHTML(job.HTML).Write(w)
		return
	}
	NewResponse().Warnings(job.Warnings).Data(job).Write(w)
}
