package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"mserapports/internal/mailer"
	"mserapports/internal/pdf"
	"mserapports/internal/store"
	"mserapports/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/sirupsen/logrus"
)

//go:embed templates
var uiFS embed.FS
var decoder = form.NewDecoder()

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	reports   *store.ReportRepository
	composer  *pdf.Composer
	mailer    mailer.Sender
	templates *template.Template

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	reports *store.ReportRepository,
	composer *pdf.Composer,
	sender mailer.Sender,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger:   logger,
		config:   config,
		reports:  reports,
		composer: composer,
		mailer:   sender,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/reports", s.handleFormSubmit, http.MethodPost)
	r.HandleFunc("/reports/:reportID", s.handleReportPage, http.MethodGet)

	r.HandleFunc("/api/health", s.handleHealth, http.MethodGet)
	r.HandleFunc("/api/reports", s.handleCreateReport, http.MethodPost)
	r.HandleFunc("/api/reports", s.handleListReports, http.MethodGet)
	r.HandleFunc("/api/reports/:reportID", s.handleGetReport, http.MethodGet)
	r.HandleFunc("/api/reports/:reportID", s.handleUpdateReport, http.MethodPut)
	r.HandleFunc("/api/reports/:reportID/photos", s.handleListPhotos, http.MethodGet)
	r.HandleFunc("/api/reports/:reportID/photos/:photoID", s.handleDeletePhoto, http.MethodDelete)
	r.HandleFunc("/api/reports/:reportID/pdf", s.handleReportPDF, http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/reports/:reportID/send", s.handleSendReport, http.MethodPost)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil || *s == "" {
				return defaultVal
			}
			return *s
		},
		"frDate": func(t time.Time) string {
			return t.Format("02/01/2006")
		},
		"urgenceLabel": func(u *string) string {
			if u == nil {
				return "Non spécifié"
			}
			switch types.Urgence(*u) {
			case types.UrgenceFaible:
				return "Faible"
			case types.UrgenceMoyenne:
				return "Moyenne"
			case types.UrgenceElevee:
				return "Élevée"
			case types.UrgenceCritique:
				return "Critique"
			}
			return "Non spécifié"
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}
