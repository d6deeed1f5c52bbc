// Package pdf renders a materialized report aggregate into a PDF document.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"mserapports/internal/utils"
	"mserapports/pkg/types"

	"github.com/go-pdf/fpdf"
)

var urgenceLabels = map[string]string{
	string(types.UrgenceFaible):   "Faible",
	string(types.UrgenceMoyenne):  "Moyenne",
	string(types.UrgenceElevee):   "Élevée",
	string(types.UrgenceCritique): "Critique",
}

var urgenceFills = map[string][3]int{
	string(types.UrgenceFaible):   {209, 250, 229},
	string(types.UrgenceMoyenne):  {254, 215, 170},
	string(types.UrgenceElevee):   {251, 191, 36},
	string(types.UrgenceCritique): {252, 165, 165},
}

type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose renders the report and its photos. The photo list is the one hanging
// off the aggregate; bytes must already be resolved.
func (c *Composer) Compose(report *types.Report) ([]byte, error) {

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetTitle(tr("Rapport "+reportLabel(report)), true)
	doc.SetAuthor("MSE", true)
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)

	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("MSE - Maintenance des Systèmes Énergétiques - généré le %s - page %d/{nb}",
			time.Now().Format("02/01/2006"), doc.PageNo())
		doc.CellFormat(0, 8, tr(footer), "", 0, "C", false, 0, "")
	})
	doc.AliasNbPages("")

	doc.AddPage()

	c.addHeader(doc, tr)
	c.addGeneralInfo(doc, tr, report)
	c.addBoilerInfo(doc, tr, report)
	c.addObservations(doc, tr, report)
	c.addLists(doc, tr, report)
	c.addPhotos(doc, tr, report.Photos)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Composer) addHeader(doc *fpdf.Fpdf, tr func(string) string) {
	doc.SetFillColor(102, 126, 234)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 12, tr("MSE - RAPPORT D'INTERVENTION"), "", 1, "C", true, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 7, tr("Maintenance des Systèmes Énergétiques"), "", 1, "C", true, 0, "")
	doc.Ln(5)
}

func (c *Composer) addGeneralInfo(doc *fpdf.Fpdf, tr func(string) string, report *types.Report) {
	c.sectionTitle(doc, tr, "INFORMATIONS GÉNÉRALES")

	urgence := utils.PtrString(report.Urgence)
	label, ok := urgenceLabels[urgence]
	if !ok {
		label = "Non spécifié"
	}

	c.infoRow(doc, tr, "N° Rapport", orDefault(utils.PtrString(report.ReportNum), "Non spécifié"))
	c.infoRow(doc, tr, "Date", report.ReportDate.Format("02/01/2006"))
	c.infoRow(doc, tr, "Intervenant", orDefault(utils.PtrString(report.Intervenant), "Non spécifié"))

	fill, ok := urgenceFills[urgence]
	if !ok {
		fill = [3]int{229, 231, 235}
	}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(75, 85, 99)
	doc.SetFillColor(229, 231, 235)
	doc.CellFormat(60, 8, tr("Urgence"), "1", 0, "L", true, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(0, 0, 0)
	doc.SetFillColor(fill[0], fill[1], fill[2])
	doc.CellFormat(0, 8, tr(label), "1", 1, "L", true, 0, "")

	c.infoRow(doc, tr, "Adresse", orDefault(report.Address, "Non spécifiée"))
	doc.Ln(4)
}

func (c *Composer) addBoilerInfo(doc *fpdf.Fpdf, tr func(string) string, report *types.Report) {
	c.sectionTitle(doc, tr, "CHAUDIÈRES")

	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(255, 255, 255)
	doc.SetFillColor(6, 182, 212)
	doc.CellFormat(90, 8, tr("Chaudière N°1"), "1", 0, "L", true, 0, "")
	doc.SetFillColor(245, 158, 11)
	doc.CellFormat(90, 8, tr("Chaudière N°2"), "1", 1, "L", true, 0, "")

	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(0, 0, 0)

	left := boilerBlock(report.C1Marque, report.C1Modele, report.C1Serie)
	right := boilerBlock(report.C2Marque, report.C2Modele, report.C2Serie)

	x, y := doc.GetXY()
	doc.SetFillColor(224, 242, 254)
	doc.MultiCell(90, 6, tr(left), "1", "L", true)
	bottom := doc.GetY()
	doc.SetXY(x+90, y)
	doc.SetFillColor(254, 243, 199)
	doc.MultiCell(90, 6, tr(right), "1", "L", true)
	if doc.GetY() < bottom {
		doc.SetY(bottom)
	}
	doc.Ln(4)
}

func (c *Composer) addObservations(doc *fpdf.Fpdf, tr func(string) string, report *types.Report) {
	c.sectionTitle(doc, tr, "ÉTAT ET OBSERVATIONS")

	c.textBlock(doc, tr, "État général", utils.PtrString(report.EtatGeneral))
	c.textBlock(doc, tr, "Anomalies constatées", utils.PtrString(report.Anomalies))
	c.textBlock(doc, tr, "Travaux réalisés", utils.PtrString(report.TravauxRealises))
	c.textBlock(doc, tr, "Recommandations", utils.PtrString(report.Recommandations))
	doc.Ln(2)
}

func (c *Composer) addLists(doc *fpdf.Fpdf, tr func(string) string, report *types.Report) {
	c.sectionTitle(doc, tr, "MESURES ET CONTRÔLES")

	c.listBlock(doc, tr, "Mesures", report.Mesures)
	c.listBlock(doc, tr, "Contrôles", report.Controles)
	c.listBlock(doc, tr, "Relevés", report.Releves)
	doc.Ln(2)
}

func (c *Composer) addPhotos(doc *fpdf.Fpdf, tr func(string) string, photos []*types.Photo) {
	if len(photos) == 0 {
		return
	}

	doc.AddPage()
	c.sectionTitle(doc, tr, "PHOTOS")

	for i, photo := range photos {
		imageType := imageTypeOf(photo.PhotoType)
		if imageType == "" || len(photo.Data) == 0 {
			continue
		}

		name := fmt.Sprintf("photo-%d", photo.ID)
		doc.RegisterImageOptionsReader(name,
			fpdf.ImageOptions{ImageType: imageType},
			bytes.NewReader(photo.Data))
		if doc.Err() {
			// Undecodable image: skip it rather than losing the document.
			doc.SetError(nil)
			continue
		}

		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 7, tr(fmt.Sprintf("Photo %d : %s", i+1, photo.PhotoName)), "", 1, "L", false, 0, "")
		doc.ImageOptions(name, doc.GetX(), doc.GetY(), 120, 0, true, fpdf.ImageOptions{ImageType: imageType}, 0, "")

		if desc := utils.PtrString(photo.Description); desc != "" {
			doc.SetFont("Helvetica", "I", 9)
			doc.MultiCell(0, 5, tr(desc), "", "L", false)
		}
		doc.Ln(4)
	}
}

func (c *Composer) sectionTitle(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(102, 126, 234)
	doc.CellFormat(0, 9, tr(title), "B", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(2)
}

func (c *Composer) infoRow(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(75, 85, 99)
	doc.SetFillColor(229, 231, 235)
	doc.CellFormat(60, 8, tr(label), "1", 0, "L", true, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 8, tr(value), "1", 1, "L", false, 0, "")
}

func (c *Composer) textBlock(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(0, 7, tr(label), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 6, tr(orDefault(value, "-")), "", "L", false)
	doc.Ln(1)
}

func (c *Composer) listBlock(doc *fpdf.Fpdf, tr func(string) string, label string, items []string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(0, 7, tr(label), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)

	if len(items) == 0 {
		doc.CellFormat(0, 6, "-", "", 1, "L", false, 0, "")
		doc.Ln(1)
		return
	}

	for _, item := range items {
		doc.MultiCell(0, 6, tr("- "+item), "", "L", false)
	}
	doc.Ln(1)
}

func boilerBlock(marque, modele, serie *string) string {
	return strings.Join([]string{
		"Marque: " + orDefault(utils.PtrString(marque), "-"),
		"Modèle: " + orDefault(utils.PtrString(modele), "-"),
		"Série: " + orDefault(utils.PtrString(serie), "-"),
	}, "\n")
}

func reportLabel(report *types.Report) string {
	if num := utils.PtrString(report.ReportNum); num != "" {
		return num
	}
	return fmt.Sprintf("N°%d", report.ID)
}

func imageTypeOf(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	}
	return ""
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
