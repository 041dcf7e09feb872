package classifier

// CategoryKeywords is the built-in keyword list of one category.
type CategoryKeywords struct {
	Name     string
	Keywords []string
}

// DefaultCategoryKeywords returns the built-in humanitarian categories. Order matters:
// on equal scores the earlier category wins.
func DefaultCategoryKeywords() []CategoryKeywords {
	return []CategoryKeywords{
		{Name: "Eau & Assainissement", Keywords: []string{
			"eau", "hygiène", "sanitaire", "toilette", "latrine", "assainissement", "lavage",
			"savon", "propre", "sale", "déchet", "ordure", "pollution", "douche", "robinet",
		}},
		{Name: "Sécurité Alimentaire", Keywords: []string{
			"nourriture", "aliment", "repas", "faim", "distribution", "ration", "manger",
			"cuisine", "famine", "nutrition", "cantine", "stock", "approvisionnement",
		}},
		{Name: "Assistance Médicale", Keywords: []string{
			"santé", "maladie", "médical", "médecin", "hôpital", "clinique", "traitement",
			"symptôme", "médicament", "douleur", "consultation", "patient", "ambulance", "urgence",
		}},
		{Name: "Abri & Logement", Keywords: []string{
			"abri", "logement", "tente", "maison", "hébergement", "refuge", "toit",
			"habitation", "camp", "construction", "bâtiment", "réparation", "matériel",
		}},
		{Name: "Sûreté & Sécurité", Keywords: []string{
			"sécurité", "danger", "menace", "protection", "violence", "vol", "agression",
			"attaque", "conflit", "peur", "police", "armée", "militaire", "arme", "crime",
		}},
		{Name: "Protection de l'Enfance", Keywords: []string{
			"enfant", "mineur", "jeune", "protection", "abus", "maltraitance", "exploitation",
			"vulnérable", "famille", "parent", "orphelin", "éducation", "école",
		}},
		{Name: "Violence Basée sur le Genre", Keywords: []string{
			"genre", "femme", "violence", "abus", "sexuel", "harcèlement", "discrimination",
			"égalité", "protection", "victime", "traumatisme", "soutien",
		}},
		{Name: "Assistance Juridique", Keywords: []string{
			"droit", "juridique", "légal", "loi", "avocat", "conseil", "document", "papier",
			"identité", "statut", "réfugié", "asile", "procédure",
		}},
		{Name: "Qualité de l'Aide", Keywords: []string{
			"qualité", "aide", "assistance", "service", "satisfaction", "insatisfaction",
			"amélioration", "problème", "plainte", "suggestion", "feedback",
		}},
		{Name: "Équité de Distribution", Keywords: []string{
			"équité", "distribution", "partage", "juste", "injuste", "favoritisme",
			"discrimination", "accès", "égalité", "inégalité", "exclusion",
		}},
		{Name: "Barrières d'Accès", Keywords: []string{
			"barrière", "accès", "obstacle", "difficulté", "empêchement", "limitation",
			"restriction", "blocage", "distance", "transport",
		}},
		{Name: "Articles Manquants", Keywords: []string{
			"manque", "manquant", "insuffisant", "rupture", "stock", "disponibilité", "besoin",
			"nécessité", "essentiel", "fourniture",
		}},
	}
}

// PriorityKeywords holds the four priority keyword lists.
type PriorityKeywords struct {
	Urgent []string
	High   []string
	Medium []string
	Low    []string
}

// DefaultPriorityKeywords returns the built-in priority lists.
func DefaultPriorityKeywords() PriorityKeywords {
	return PriorityKeywords{
		Urgent: []string{"urgent", "immédiat", "critique", "grave", "danger", "vie", "mort", "catastrophe", "urgence"},
		High:   []string{"important", "sérieux", "majeur", "significatif", "préoccupant", "inquiétant"},
		Medium: []string{"modéré", "moyen", "normal", "standard", "habituel"},
		Low:    []string{"mineur", "faible", "léger", "petit", "minimal"},
	}
}
