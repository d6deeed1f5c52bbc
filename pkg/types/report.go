package types

import (
	"net/mail"
	"strings"
	"time"
)

type Urgence string

const (
	UrgenceFaible   Urgence = "faible"
	UrgenceMoyenne  Urgence = "moyenne"
	UrgenceElevee   Urgence = "elevee"
	UrgenceCritique Urgence = "critique"
)

func (u Urgence) Valid() bool {
	switch u {
	case UrgenceFaible, UrgenceMoyenne, UrgenceElevee, UrgenceCritique:
		return true
	}
	return false
}

// Report is one boiler-service intervention record. The three list fields are
// stored as JSONB arrays of strings and always materialize as StringList.
type Report struct {
	ID         int64     `db:"id" json:"id"`
	ReportNum  *string   `db:"report_num" json:"report_num"`
	ReportDate time.Time `db:"report_date" json:"report_date"`
	Address    string    `db:"address" json:"address"`

	C1Marque *string `db:"c1_marque" json:"c1_marque"`
	C1Modele *string `db:"c1_modele" json:"c1_modele"`
	C1Serie  *string `db:"c1_serie" json:"c1_serie"`
	C2Marque *string `db:"c2_marque" json:"c2_marque"`
	C2Modele *string `db:"c2_modele" json:"c2_modele"`
	C2Serie  *string `db:"c2_serie" json:"c2_serie"`

	EtatGeneral      *string `db:"etat_general" json:"etat_general"`
	Anomalies        *string `db:"anomalies" json:"anomalies"`
	TravauxRealises  *string `db:"travaux_realises" json:"travaux_realises"`
	Recommandations  *string `db:"recommandations" json:"recommandations"`
	Urgence          *string `db:"urgence" json:"urgence"`
	Intervenant      *string `db:"intervenant" json:"intervenant"`

	Mesures   StringList `db:"mesures" json:"mesures"`
	Controles StringList `db:"controles" json:"controles"`
	Releves   StringList `db:"releves" json:"releves"`

	EmailDestinataire *string    `db:"email_destinataire" json:"email_destinataire"`
	EmailSent         bool       `db:"email_sent" json:"email_sent"`
	EmailSentAt       *time.Time `db:"email_sent_at" json:"email_sent_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Loaded alongside the row by ReportByID, never scanned.
	Photos []*Photo `db:"-" json:"photos,omitempty"`
}

// ReportSummary is a listing row: the report columns plus its photo count.
type ReportSummary struct {
	Report
	PhotoCount int64 `db:"photo_count" json:"photo_count"`
}

// ReportDraft carries the client-supplied fields of a new report. ReportDate
// travels as a YYYY-MM-DD string until validation parses it.
type ReportDraft struct {
	ReportNum  string `json:"reportNum" form:"report_num"`
	ReportDate string `json:"reportDate" form:"report_date"`
	Address    string `json:"address" form:"address"`

	C1Marque string `json:"c1_marque" form:"c1_marque"`
	C1Modele string `json:"c1_modele" form:"c1_modele"`
	C1Serie  string `json:"c1_serie" form:"c1_serie"`
	C2Marque string `json:"c2_marque" form:"c2_marque"`
	C2Modele string `json:"c2_modele" form:"c2_modele"`
	C2Serie  string `json:"c2_serie" form:"c2_serie"`

	EtatGeneral     string `json:"etat_general" form:"etat_general"`
	Anomalies       string `json:"anomalies" form:"anomalies"`
	TravauxRealises string `json:"travaux_realises" form:"travaux_realises"`
	Recommandations string `json:"recommandations" form:"recommandations"`
	Urgence         string `json:"urgence" form:"urgence"`
	Intervenant     string `json:"intervenant" form:"intervenant"`

	Mesures   []string `json:"mesures" form:"mesures"`
	Controles []string `json:"controles" form:"controles"`
	Releves   []string `json:"releves" form:"releves"`

	EmailDestinataire string `json:"email_destinataire" form:"email_destinataire"`
}

const ReportDateLayout = "2006-01-02"

// Date parses the draft's report date. Only meaningful after Validate
// passed.
func (d *ReportDraft) Date() (time.Time, error) {
	return time.Parse(ReportDateLayout, strings.TrimSpace(d.ReportDate))
}

// Validate checks the draft and every attached photo descriptor, collecting
// all violations rather than stopping at the first.
func (d *ReportDraft) Validate(photos []PhotoUpload) []string {
	var violations []string

	if strings.TrimSpace(d.ReportDate) == "" {
		violations = append(violations, "La date est obligatoire")
	} else if _, err := d.Date(); err != nil {
		violations = append(violations, "Date invalide : "+d.ReportDate)
	}

	if strings.TrimSpace(d.Address) == "" {
		violations = append(violations, "L'adresse est obligatoire")
	}

	if d.EmailDestinataire != "" {
		if _, err := mail.ParseAddress(d.EmailDestinataire); err != nil {
			violations = append(violations, "Email invalide : "+d.EmailDestinataire)
		}
	}

	if d.Urgence != "" && !Urgence(d.Urgence).Valid() {
		violations = append(violations, "Urgence invalide : "+d.Urgence)
	}

	for i, photo := range photos {
		violations = append(violations, photo.validate(i+1)...)
	}

	return violations
}
