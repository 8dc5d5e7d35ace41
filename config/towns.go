package config

import "homefinder/server/internal/models"

// Town is a reference entry for a supported locality.
type Town struct {
	Name            string    `json:"name"`
	Region          string    `json:"region"`
	Maturity        string    `json:"maturity"`
	Characteristics []string  `json:"characteristics"`
	Centroid        []float64 `json:"centroid"` // [lon, lat]
}

// ReferenceTowns seeds the metadata store on first start. Towns outside the
// table still work everywhere; they just enrich to "Unknown".
var ReferenceTowns = []Town{
	{
		Name:            "ANG MO KIO",
		Region:          "North-East",
		Maturity:        "Mature",
		Characteristics: []string{"central", "well-connected", "hawker food"},
		Centroid:        []float64{103.8454, 1.3691},
	},
	{
		Name:            "BEDOK",
		Region:          "East",
		Maturity:        "Mature",
		Characteristics: []string{"coastal", "established", "food haven"},
		Centroid:        []float64{103.9273, 1.3236},
	},
	{
		Name:            "BISHAN",
		Region:          "Central",
		Maturity:        "Mature",
		Characteristics: []string{"central", "good schools", "premium"},
		Centroid:        []float64{103.8485, 1.3526},
	},
	{
		Name:            "BUKIT BATOK",
		Region:          "West",
		Maturity:        "Non-mature",
		Characteristics: []string{"nature", "affordable"},
		Centroid:        []float64{103.7496, 1.3590},
	},
	{
		Name:            "JURONG EAST",
		Region:          "West",
		Maturity:        "Non-mature",
		Characteristics: []string{"regional centre", "business hub"},
		Centroid:        []float64{103.7422, 1.3329},
	},
	{
		Name:            "PUNGGOL",
		Region:          "North-East",
		Maturity:        "Non-mature",
		Characteristics: []string{"waterfront", "new estates", "young families"},
		Centroid:        []float64{103.9021, 1.4043},
	},
	{
		Name:            "QUEENSTOWN",
		Region:          "Central",
		Maturity:        "Mature",
		Characteristics: []string{"oldest estate", "city fringe", "premium"},
		Centroid:        []float64{103.7860, 1.2942},
	},
	{
		Name:            "TAMPINES",
		Region:          "East",
		Maturity:        "Mature",
		Characteristics: []string{"regional centre", "well-connected"},
		Centroid:        []float64{103.9568, 1.3555},
	},
	{
		Name:            "TOA PAYOH",
		Region:          "Central",
		Maturity:        "Mature",
		Characteristics: []string{"central", "heritage", "well-connected"},
		Centroid:        []float64{103.8476, 1.3343},
	},
	{
		Name:            "WOODLANDS",
		Region:          "North",
		Maturity:        "Non-mature",
		Characteristics: []string{"northern gateway", "affordable"},
		Centroid:        []float64{103.7890, 1.4382},
	},
}

// GetTownNames returns the names of the reference towns.
func GetTownNames() []string {
	names := make([]string, len(ReferenceTowns))
	for i, town := range ReferenceTowns {
		names[i] = town.Name
	}
	return names
}

// GetTownByName returns a reference town by name.
func GetTownByName(name string) *Town {
	for _, town := range ReferenceTowns {
		if town.Name == name {
			return &town
		}
	}
	return nil
}

// TownMetadataRecords converts the reference table into seedable metadata
// records.
func TownMetadataRecords() []models.TownMetadata {
	records := make([]models.TownMetadata, len(ReferenceTowns))
	for i, town := range ReferenceTowns {
		records[i] = models.TownMetadata{
			TownName:        town.Name,
			Region:          town.Region,
			Maturity:        town.Maturity,
			Characteristics: town.Characteristics,
			Centroid:        town.Centroid,
		}
	}
	return records
}
