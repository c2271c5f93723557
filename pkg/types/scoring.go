package types

// FanDuel category weights used for the fantasy-point rollup and for the
// per-category leak weighting in the DVS multiplier.
var FantasyWeights = map[string]float64{
	"pts":  1.0,
	"reb":  1.2,
	"ast":  1.5,
	"stl":  3.0,
	"blk":  3.0,
	"fg3m": 3.0,
	"tov":  -1.0,
}

// StatCategories lists the scored categories in a stable order.
var StatCategories = []string{"pts", "reb", "ast", "stl", "blk", "fg3m", "tov"}

// CategoryValue extracts one scored category from a game log row.
func (g *GameLogRow) CategoryValue(category string) float64 {
	switch category {
	case "pts":
		return g.Points
	case "reb":
		return g.Rebounds
	case "ast":
		return g.Assists
	case "stl":
		return g.Steals
	case "blk":
		return g.Blocks
	case "fg3m":
		return g.ThreesMade
	case "tov":
		return g.Turnovers
	}
	return 0
}

// ComputeFantasyPoints rolls a stat line up into FanDuel fantasy points.
// Game logs normally arrive with FantasyPoints populated upstream; this is
// the fallback when they do not.
func (g *GameLogRow) ComputeFantasyPoints() float64 {
	total := 0.0
	for _, cat := range StatCategories {
		total += FantasyWeights[cat] * g.CategoryValue(cat)
	}
	return total
}
