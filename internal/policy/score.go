package policy

// Strength is the result of scoring a password candidate.
type Strength struct {
	Score int    `json:"score"` // 0..4
	Label string `json:"label"`
	Tier  string `json:"tier"` // color tier for UI surfaces
}

var strengthTable = [5]Strength{
	{Score: 0, Label: "Very Weak", Tier: "red"},
	{Score: 1, Label: "Weak", Tier: "orange"},
	{Score: 2, Label: "Fair", Tier: "yellow"},
	{Score: 3, Label: "Good", Tier: "green"},
	{Score: 4, Label: "Strong", Tier: "green"},
}

// Score rates a password by length and character-class diversity.
// Length contributes up to 3 points (>=8, >=12, >=16); mixed case,
// digits and symbols contribute one point each; the sum is capped at 4.
// An empty password scores 0 with a neutral tier.
func Score(password string) Strength {
	if password == "" {
		return Strength{Score: 0, Label: "None", Tier: "neutral"}
	}

	var points int
	switch n := len(password); {
	case n >= 16:
		points = 3
	case n >= 12:
		points = 2
	case n >= 8:
		points = 1
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if hasLower && hasUpper {
		points++
	}
	if hasDigit {
		points++
	}
	if hasSymbol {
		points++
	}

	if points > 4 {
		points = 4
	}
	return strengthTable[points]
}
