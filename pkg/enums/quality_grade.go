package enums

import "fmt"

// QualityGrade classifies produce quality for pricing provenance.
type QualityGrade string

const (
	QualityGradePremium  QualityGrade = "premium"
	QualityGradeStandard QualityGrade = "standard"
	QualityGradeEconomy  QualityGrade = "economy"
)

var validQualityGrades = []QualityGrade{
	QualityGradePremium,
	QualityGradeStandard,
	QualityGradeEconomy,
}

// String implements fmt.Stringer.
func (q QualityGrade) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QualityGrade.
func (q QualityGrade) IsValid() bool {
	for _, candidate := range validQualityGrades {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQualityGrade converts raw input into a QualityGrade.
func ParseQualityGrade(value string) (QualityGrade, error) {
	for _, candidate := range validQualityGrades {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quality grade %q", value)
}
