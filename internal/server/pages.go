package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mserapports/pkg/types"
)

const maxFormMemory = 32 << 20

type homePageData struct {
	Errors  []string
	Reports []*types.ReportSummary
}

type reportPageData struct {
	Report *types.Report
	Images []reportImage
}

type reportImage struct {
	Name        string
	Description string
	DataURL     string
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summaries, err := s.reports.Reports(ctx, 20, 0)
	if err != nil {
		s.logger.WithError(err).Error("failed to load report list")
		summaries = nil
	}

	data := homePageData{Reports: summaries}
	if msg := r.URL.Query().Get("erreur"); msg != "" {
		data.Errors = []string{msg}
	}

	s.renderTemplate(w, "home", data)
}

func (s *Service) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		http.Redirect(w, r, "/?erreur=Formulaire+invalide", http.StatusSeeOther)
		return
	}

	var draft types.ReportDraft
	if err := decoder.Decode(&draft, r.PostForm); err != nil {
		http.Redirect(w, r, "/?erreur=Formulaire+invalide", http.StatusSeeOther)
		return
	}

	photos, err := s.formPhotos(r)
	if err != nil {
		s.logger.WithError(err).Error("failed to read uploaded photos")
		http.Redirect(w, r, "/?erreur=Photos+illisibles", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	reportID, err := s.reports.Save(ctx, &draft, photos)
	if err != nil {
		var invalid *types.ValidationError
		if errors.As(err, &invalid) {
			s.renderFormErrors(w, r, invalid.Violations)
			return
		}

		s.logger.WithError(err).Error("failed to save report from form")
		http.Redirect(w, r, "/?erreur=Enregistrement+impossible", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/reports/%d", reportID), http.StatusSeeOther)
}

func (s *Service) renderFormErrors(w http.ResponseWriter, r *http.Request, violations []string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summaries, err := s.reports.Reports(ctx, 20, 0)
	if err != nil {
		summaries = nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	s.renderTemplate(w, "home", homePageData{Errors: violations, Reports: summaries})
}

func (s *Service) formPhotos(r *http.Request) ([]types.PhotoUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	files := r.MultipartForm.File["photos"]
	photos := make([]types.PhotoUpload, 0, len(files))

	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
		}

		photos = append(photos, types.PhotoUpload{
			Data: data,
			Name: header.Filename,
			Type: header.Header.Get("Content-Type"),
			Size: header.Size,
		})
	}

	return photos, nil
}

func (s *Service) handleReportPage(w http.ResponseWriter, r *http.Request) {
	reportID, ok := s.reportIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report, err := s.reports.ReportByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, types.ErrReportNotFound) {
			http.NotFound(w, r)
			return
		}

		s.logger.WithError(err).Error("failed to load report page")
		http.Error(w, "Impossible de charger le rapport", http.StatusInternalServerError)
		return
	}

	data := reportPageData{Report: report}
	for _, photo := range report.Photos {
		if len(photo.Data) == 0 {
			continue
		}

		description := ""
		if photo.Description != nil {
			description = *photo.Description
		}

		data.Images = append(data.Images, reportImage{
			Name:        photo.PhotoName,
			Description: description,
			DataURL: fmt.Sprintf("data:%s;base64,%s",
				photo.PhotoType, base64.StdEncoding.EncodeToString(photo.Data)),
		})
	}

	s.renderTemplate(w, "report", data)
}
