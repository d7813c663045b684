package checkoutsession

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-playground/form/v4"

	"github.com/sklim84/agentic-commerce-protocol/lib/mycontext"
	"github.com/sklim84/agentic-commerce-protocol/lib/myerrors"
	"github.com/sklim84/agentic-commerce-protocol/lib/myhttp"
)

//go:embed templates
var templateFolder embed.FS
var sessionListPageTemplate *template.Template

func init() {
	sessionListPageTemplate = template.Must(template.ParseFS(templateFolder, "templates/session_list.html"))
}

type sessionListFilter struct {
	Status   string `form:"status"`
	Currency string `form:"currency"`
}

// adminSessionListPage renders an HTML overview of sessions for the merchant
// back office. Not part of the protocol surface.
func (s *webService) adminSessionListPage() http.HandlerFunc {
	decoder := form.NewDecoder()

	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		responseWriter := myhttp.NewWriter(s.logger)

		filter := sessionListFilter{}
		if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
			responseWriter.WriteError(c, w, myerrors.NewInvalidInputError(fmt.Errorf("error parsing filter: %s", err)))
			return
		}

		sessions, err := s.service.listCheckoutSessions(c, filter)
		if err != nil {
			responseWriter.WriteError(c, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = sessionListPageTemplate.Execute(w, sessions)
		if err != nil {
			responseWriter.WriteError(c, w, myerrors.NewInternalError(fmt.Errorf("error rendering session list: %s", err)))
			return
		}
	}
}
