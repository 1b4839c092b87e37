package activity

import (
	"regexp"
	"strings"
)

// Stages of the Brazilian basic education
const (
	StageInfantil    = "infantil"
	StageFundamental = "fundamental"
	StageMedio       = "medio"
)

var (
	// EI01EO03, EF05MA12, EM13LGG101
	bnccInfantilRegex    = regexp.MustCompile(`^EI0[1-3][A-Z]{2}\d{2}$`)
	bnccFundamentalRegex = regexp.MustCompile(`^EF\d{2}[A-Z]{2}\d{2}$`)
	bnccMedioRegex       = regexp.MustCompile(`^EM\d{2}[A-Z]{2,3}\d{2,3}$`)

	Stages = []string{StageInfantil, StageFundamental, StageMedio}
)

// NormalizeBNCC uppercases a code and strips whitespace around it.
func NormalizeBNCC(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StageOf returns the stage a BNCC code belongs to, or "" when the code is malformed.
func StageOf(code string) string {
	switch {
	case bnccInfantilRegex.MatchString(code):
		return StageInfantil
	case bnccFundamentalRegex.MatchString(code):
		return StageFundamental
	case bnccMedioRegex.MatchString(code):
		return StageMedio
	default:
		return ""
	}
}

func IsValidBNCC(code string) bool {
	return StageOf(code) != ""
}
