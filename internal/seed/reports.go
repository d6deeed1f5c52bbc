// Package seed fills an empty database with representative sample data.
package seed

import (
	"context"
	"encoding/base64"
	"fmt"

	"mserapports/internal/store"
	"mserapports/pkg/types"
)

// A valid 1x1 PNG so seeded reports exercise the photo path end to end.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func SeedReports(ctx context.Context, reports *store.ReportRepository) error {
	photoData, err := base64.StdEncoding.DecodeString(tinyPNG)
	if err != nil {
		return fmt.Errorf("decode sample photo: %w", err)
	}

	samples := []struct {
		draft  types.ReportDraft
		photos []types.PhotoUpload
	}{
		{
			draft: types.ReportDraft{
				ReportNum:         "MSE-2024-0001",
				ReportDate:        "2024-01-10",
				Address:           "3 Rue Exemple\n75011 Paris",
				C1Marque:          "Viessmann",
				C1Modele:          "Vitodens 200-W",
				C1Serie:           "7570124-00231",
				EtatGeneral:       "Installation en bon état général.",
				TravauxRealises:   "Entretien annuel complet, remplacement du joint de brûleur.",
				Urgence:           string(types.UrgenceFaible),
				Intervenant:       "J. Martin",
				Mesures:           []string{"Temp. départ : 65°C", "Temp. fumées : 58°C"},
				Controles:         []string{"Pression circuit : OK", "Étanchéité gaz : OK"},
				Releves:           []string{"Compteur gaz : 12345"},
				EmailDestinataire: "syndic@example.fr",
			},
			photos: []types.PhotoUpload{
				{Data: photoData, Name: "chaufferie.png", Type: "image/png", Description: "Vue générale de la chaufferie"},
			},
		},
		{
			draft: types.ReportDraft{
				ReportNum:       "MSE-2024-0002",
				ReportDate:      "2024-02-03",
				Address:         "18 Avenue des Tilleuls\n69003 Lyon",
				C1Marque:        "De Dietrich",
				C1Modele:        "C 230 Eco",
				C2Marque:        "De Dietrich",
				C2Modele:        "C 230 Eco",
				EtatGeneral:     "Corrosion avancée sur le corps de chauffe de la chaudière N°2.",
				Anomalies:       "Fuite au niveau de la vanne trois voies.",
				TravauxRealises: "Resserrage provisoire, pièce à commander.",
				Recommandations: "Prévoir le remplacement de la vanne sous 15 jours.",
				Urgence:         string(types.UrgenceElevee),
				Intervenant:     "P. Dupuis",
				Mesures:         []string{"Temp. départ : 72°C"},
			},
		},
		{
			draft: types.ReportDraft{
				ReportDate:  "2024-02-20",
				Address:     "5 Place du Marché\n33000 Bordeaux",
				Urgence:     string(types.UrgenceMoyenne),
				Intervenant: "J. Martin",
				Controles:   []string{"Détecteur CO : OK"},
			},
		},
	}

	for _, sample := range samples {
		if _, err := reports.Save(ctx, &sample.draft, sample.photos); err != nil {
			return fmt.Errorf("seed report %q: %w", sample.draft.ReportNum, err)
		}
	}

	return nil
}
