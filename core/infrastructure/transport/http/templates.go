package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/transport/http/dto"
	"github.com/chenhy0213/test-tool-with-db/core/template"
)

// handleListTemplates returns the template catalog, optionally filtered by
// the q parameter matching name, description, tooltip, labels or SQL text.
func handleListTemplates(engines EngineProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLog := logging.New("Handler")
		query := r.URL.Query().Get("q")
		handlerLog.Debugf("Listing templates, filter %q", query)

		matches := engines().Library().Search(query)
		summaries := make([]dto.TemplateSummary, len(matches))
		for i, tpl := range matches {
			summaries[i] = summarize(tpl)
		}

		writeJSON(w, http.StatusOK, dto.TemplateListResponse{
			Success:   true,
			Templates: summaries,
		})
	}
}

// handleTemplateDetail returns one template with its input fields and the
// placeholder markers its statements reference.
func handleTemplateDetail(engines EngineProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		tpl, ok := engines().Library().Find(name)
		if !ok {
			writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("query '%s' not found", name))
			return
		}

		fields := make([]dto.TemplateField, len(tpl.Fields))
		for i, f := range tpl.Fields {
			fields[i] = dto.TemplateField{
				Label:       f.Label,
				Type:        string(f.Type),
				Placeholder: f.Placeholder,
				Options:     f.Options,
			}
		}

		writeJSON(w, http.StatusOK, dto.TemplateDetail{
			Name:           tpl.Name,
			Description:    tpl.Description,
			Tooltip:        tpl.Tooltip,
			StatementCount: len(tpl.Statements),
			Fields:         fields,
			Placeholders:   tpl.Placeholders(),
		})
	}
}

func summarize(tpl *template.Template) dto.TemplateSummary {
	return dto.TemplateSummary{
		Name:           tpl.Name,
		Description:    tpl.Description,
		Tooltip:        tpl.Tooltip,
		StatementCount: len(tpl.Statements),
	}
}
