package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mserapports/internal/utils"
	"mserapports/pkg/types"
)

type photoPayload struct {
	Data        string `json:"data"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	Description string `json:"description"`
}

type createReportRequest struct {
	types.ReportDraft
	Photos []photoPayload `json:"photos"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Service) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Corps JSON invalide")
		return
	}

	photos := make([]types.PhotoUpload, 0, len(req.Photos))
	for i, payload := range req.Photos {
		data, err := decodePhotoData(payload.Data)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Photo #%d : données invalides", i+1))
			return
		}

		photos = append(photos, types.PhotoUpload{
			Data:        data,
			Name:        payload.Name,
			Type:        payload.Type,
			Size:        payload.Size,
			Description: payload.Description,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	reportID, err := s.reports.Save(ctx, &req.ReportDraft, photos)
	if err != nil {
		var invalid *types.ValidationError
		if errors.As(err, &invalid) {
			s.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":      invalid.Error(),
				"violations": invalid.Violations,
			})
			return
		}

		s.logger.WithError(err).Error("failed to save report")
		s.writeError(w, http.StatusInternalServerError, "Impossible d'enregistrer le rapport")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Rapport créé avec succès",
		"id":      reportID,
	})
}

func (s *Service) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := queryUint(r, "limit", 50)
	offset := queryUint(r, "offset", 0)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summaries, err := s.reports.Reports(ctx, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list reports")
		s.writeError(w, http.StatusInternalServerError, "Impossible de lister les rapports")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"data": summaries,
		"meta": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(summaries),
		},
	})
}

func (s *Service) handleGetReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := s.reportIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report, err := s.reports.ReportByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, types.ErrReportNotFound) {
			s.writeError(w, http.StatusNotFound, "Rapport non trouvé")
			return
		}

		s.logger.WithError(err).Error("failed to fetch report")
		s.writeError(w, http.StatusInternalServerError, "Impossible de charger le rapport")
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// handleUpdateReport mirrors the one deliberately unimplemented operation of
// the API: reports are write-once.
func (s *Service) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotImplemented, "Mise à jour non implémentée")
}

func (s *Service) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	reportID, ok := s.reportIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	photos, err := s.reports.Photos(ctx, reportID)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch photos")
		s.writeError(w, http.StatusInternalServerError, "Impossible de charger les photos")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"photos": photos})
}

func (s *Service) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	photoID, err := strconv.ParseInt(r.PathValue("photoID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deleted, err := s.reports.DeletePhoto(ctx, photoID)
	if err != nil {
		s.logger.WithError(err).Error("failed to delete photo")
		s.writeError(w, http.StatusInternalServerError, "Impossible de supprimer la photo")
		return
	}

	if !deleted {
		s.writeError(w, http.StatusNotFound, "Photo non trouvée")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Photo supprimée",
	})
}

func (s *Service) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	reportID, ok := s.reportIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report, err := s.reports.ReportByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, types.ErrReportNotFound) {
			s.writeError(w, http.StatusNotFound, "Rapport non trouvé")
			return
		}

		s.logger.WithError(err).Error("failed to fetch report for pdf")
		s.writeError(w, http.StatusInternalServerError, "Impossible de charger le rapport")
		return
	}

	pdfData, err := s.composer.Compose(report)
	if err != nil {
		s.logger.WithError(err).Error("failed to compose pdf")
		s.writeError(w, http.StatusInternalServerError, "Impossible de générer le PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("rapport_%d.pdf", report.ID)))
	w.Write(pdfData)
}

func (s *Service) handleSendReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := s.reportIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	report, err := s.reports.ReportByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, types.ErrReportNotFound) {
			s.writeError(w, http.StatusNotFound, "Rapport non trouvé")
			return
		}

		s.logger.WithError(err).Error("failed to fetch report for send")
		s.writeError(w, http.StatusInternalServerError, "Impossible de charger le rapport")
		return
	}

	recipient := utils.PtrString(report.EmailDestinataire)
	if recipient == "" {
		s.writeError(w, http.StatusBadRequest, "Aucun email destinataire configuré")
		return
	}

	pdfData, err := s.composer.Compose(report)
	if err != nil {
		s.logger.WithError(err).Error("failed to compose pdf for send")
		s.writeError(w, http.StatusInternalServerError, "Impossible de générer le PDF")
		return
	}

	if err := s.mailer.SendReport(ctx, report, pdfData); err != nil {
		s.logger.WithError(err).Error("failed to send report email")
		s.writeError(w, http.StatusInternalServerError, "Impossible d'envoyer l'email")
		return
	}

	if _, err := s.reports.MarkEmailSent(ctx, reportID); err != nil {
		s.logger.WithError(err).Error("failed to mark report sent")
		s.writeError(w, http.StatusInternalServerError, "Email envoyé mais non marqué")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Email envoyé avec succès à " + recipient,
	})
}

func (s *Service) reportIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	reportID, err := strconv.ParseInt(r.PathValue("reportID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Identifiant invalide")
		return 0, false
	}
	return reportID, true
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}

func queryUint(r *http.Request, name string, fallback uint64) uint64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// decodePhotoData accepts raw base64 or a browser data URL
// ("data:image/jpeg;base64,...").
func decodePhotoData(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}

	if idx := strings.Index(data, ";base64,"); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+len(";base64,"):]
	}

	return base64.StdEncoding.DecodeString(data)
}
