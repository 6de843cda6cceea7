package band

// Tier is a qualitative level for a band score.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierCompetent Tier = "competent"
	TierModest    Tier = "modest"
	TierLimited   Tier = "limited"
)

var tiers = []struct {
	min     Score
	tier    Tier
	message string
}{
	{8.0, TierExcellent, "Excellent! You have a very good command of the language."},
	{7.0, TierGood, "Good job! You handle complex language well with occasional inaccuracies."},
	{6.0, TierCompetent, "Competent. You understand most of the material but make some mistakes."},
	{5.0, TierModest, "Modest. You get the overall meaning but miss many details."},
	{0, TierLimited, "Limited. Keep practising the basics to build up your understanding."},
}

// TierOf returns the tier of s. A score on a threshold belongs to the higher tier.
func TierOf(s Score) Tier {
	for _, t := range tiers {
		if s >= t.min {
			return t.tier
		}
	}
	return TierLimited
}

// Feedback returns a short message for a learner who scored s.
func Feedback(s Score) string {
	for _, t := range tiers {
		if s >= t.min {
			return t.message
		}
	}
	return tiers[len(tiers)-1].message
}
