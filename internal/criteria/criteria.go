// internal/criteria/criteria.go
// Package criteria holds the fixed O-1 evidence category table consumed by
// the scoring engine, the classifier boundary and the HTTP surface. The
// table is an ordered slice: declaration order determines the ordering of
// met-criteria lists and evidence summaries.
package criteria

import "talent-platform/internal/models"

// Category keys. Exactly eight, fixed.
const (
	Awards               = "awards"
	Membership           = "membership"
	PublishedMaterial    = "published_material"
	Judging              = "judging"
	OriginalContribution = "original_contribution"
	ScholarlyArticles    = "scholarly_articles"
	CriticalEmployment   = "critical_employment"
	HighRemuneration     = "high_remuneration"
)

// FallbackCategory is substituted when an upstream classifier returns a
// category outside the fixed set.
const FallbackCategory = OriginalContribution

// Definition describes one evidence category.
type Definition struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	MaxScore  int      `json:"maxScore"`
	Threshold int      `json:"threshold"`
	Examples  []string `json:"examples"`
}

// Table is the ordered category table. Do not reorder entries: iteration
// order is significant for criteria_met and evidence summaries.
var Table = []Definition{
	{
		Key:       Awards,
		Name:      "Nationally or Internationally Recognized Awards",
		MaxScore:  20,
		Threshold: 10,
		Examples: []string{
			"Industry award from a national body",
			"International competition prize",
		},
	},
	{
		Key:       Membership,
		Name:      "Membership in Associations Requiring Outstanding Achievement",
		MaxScore:  10,
		Threshold: 5,
		Examples: []string{
			"Invited membership in a selective professional association",
		},
	},
	{
		Key:       PublishedMaterial,
		Name:      "Published Material About the Candidate",
		MaxScore:  15,
		Threshold: 8,
		Examples: []string{
			"Major trade publication profile",
			"National press coverage of the candidate's work",
		},
	},
	{
		Key:       Judging,
		Name:      "Judging the Work of Others",
		MaxScore:  10,
		Threshold: 5,
		Examples: []string{
			"Peer review for a recognized journal",
			"Judging panel at an industry competition",
		},
	},
	{
		Key:       OriginalContribution,
		Name:      "Original Contributions of Major Significance",
		MaxScore:  20,
		Threshold: 10,
		Examples: []string{
			"Patent with demonstrated industry adoption",
			"Widely cited original research or technique",
		},
	},
	{
		Key:       ScholarlyArticles,
		Name:      "Authorship of Scholarly Articles",
		MaxScore:  15,
		Threshold: 8,
		Examples: []string{
			"Peer-reviewed publication in a professional journal",
		},
	},
	{
		Key:       CriticalEmployment,
		Name:      "Critical or Essential Capacity for Distinguished Organizations",
		MaxScore:  15,
		Threshold: 8,
		Examples: []string{
			"Lead role at an organization with a distinguished reputation",
		},
	},
	{
		Key:       HighRemuneration,
		Name:      "High Salary or Remuneration",
		MaxScore:  10,
		Threshold: 5,
		Examples: []string{
			"Compensation evidence well above field norms",
		},
	},
}

// OverallCap is the global ceiling on the visible overall score, independent
// of the sum of per-category maxima.
const OverallCap = 100

// Lookup returns the definition for key. ok is false for unknown keys.
func Lookup(key string) (Definition, bool) {
	for _, def := range Table {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}

// Valid reports whether key names one of the eight fixed categories.
func Valid(key string) bool {
	_, ok := Lookup(key)
	return ok
}

// statusBand maps a minimum overall score to a qualification status.
// Bands are configuration, not engine logic.
type statusBand struct {
	Min    int
	Status models.QualificationStatus
}

var statusBands = []statusBand{
	{Min: 70, Status: models.QualificationStrong},
	{Min: 40, Status: models.QualificationBorderline},
	{Min: 0, Status: models.QualificationLow},
}

// StatusFor derives the qualification status label for an overall score.
func StatusFor(score int) models.QualificationStatus {
	for _, band := range statusBands {
		if score >= band.Min {
			return band.Status
		}
	}
	return models.QualificationLow
}
