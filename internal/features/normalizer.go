// Package features converts raw per-player stat records into population
// z-scores and compresses them into the composite index vectors the
// clustering engine consumes.
package features

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/court-iq/pkg/logger"
	"github.com/stitts-dev/court-iq/pkg/types"
)

// Feature names, kept stable because composite index definitions reference
// them by name.
const (
	FeatPtsPer100   = "pts_per100"
	FeatRebPer100   = "reb_per100"
	FeatAstPer100   = "ast_per100"
	FeatStlPer100   = "stl_per100"
	FeatBlkPer100   = "blk_per100"
	FeatTovPer100   = "tov_per100"
	FeatFg3mPer100  = "fg3m_per100"
	FeatUsagePct    = "usg_pct"
	FeatTouchesPM   = "touches_per_min"
	FeatGuardPct    = "guard_pct"
	FeatForwardPct  = "forward_pct"
	FeatBigPct      = "big_pct"
	FeatInterior    = "interior_share"
	FeatThreeShare  = "three_share"
	FeatAstRebRatio = "ast_to_reb_ratio"
	FeatVersatility = "scoring_versatility"
)

// FeatureNames lists every normalized feature in a stable order.
var FeatureNames = []string{
	FeatPtsPer100, FeatRebPer100, FeatAstPer100, FeatStlPer100, FeatBlkPer100,
	FeatTovPer100, FeatFg3mPer100, FeatUsagePct, FeatTouchesPM,
	FeatGuardPct, FeatForwardPct, FeatBigPct,
	FeatInterior, FeatThreeShare, FeatAstRebRatio, FeatVersatility,
}

// Extract derives the raw feature map for one stat record. Ratio features
// guard their denominators; a feature that cannot be derived at all is
// emitted as NaN so the normalizer can substitute the population mean.
func Extract(r *types.PlayerStatRecord) map[string]float64 {
	feats := map[string]float64{
		FeatPtsPer100:  r.PtsPer100,
		FeatRebPer100:  r.RebPer100,
		FeatAstPer100:  r.AstPer100,
		FeatStlPer100:  r.StlPer100,
		FeatBlkPer100:  r.BlkPer100,
		FeatTovPer100:  r.TovPer100,
		FeatFg3mPer100: r.Fg3mPer100,
		FeatUsagePct:   r.UsagePct,
		FeatTouchesPM:  r.TouchesPerMin,
		FeatGuardPct:   r.GuardShare(),
		FeatForwardPct: r.ForwardShare(),
		FeatBigPct:     r.BigShare(),
	}

	if r.TotalFGA > 0 {
		feats[FeatInterior] = (r.RimFGA + r.PaintFGA) / r.TotalFGA
		feats[FeatThreeShare] = r.ThreeFGA / r.TotalFGA
	} else {
		feats[FeatInterior] = math.NaN()
		feats[FeatThreeShare] = math.NaN()
	}

	if r.RebPer100 > 0 {
		feats[FeatAstRebRatio] = r.AstPer100 / r.RebPer100
	} else {
		feats[FeatAstRebRatio] = r.AstPer100
	}

	if r.PtsPer100 > 0 {
		feats[FeatVersatility] = r.Fg3mPer100 / r.PtsPer100
	} else {
		feats[FeatVersatility] = 0
	}

	return feats
}

// Normalizer holds population moments for each feature, fitted over the
// qualifying player population. Players below the qualification floor are
// still scored against the qualifying moments, never excluded.
type Normalizer struct {
	mean       map[string]float64
	stddev     map[string]float64
	degenerate map[string]bool

	QualifyingCount int
	FallbackAll     bool

	log *logrus.Entry
}

// Qualifies reports whether a record meets the population floor.
func Qualifies(r *types.PlayerStatRecord, minGames int, minMPG float64) bool {
	return r.GamesPlayed >= minGames && r.MinutesPerGame >= minMPG
}

// FitNormalizer computes per-feature mean and standard deviation over the
// qualifying population. With zero qualifying players it falls back to the
// full population and flags the condition rather than failing the run.
func FitNormalizer(records []types.PlayerStatRecord, minGames int, minMPG float64) (*Normalizer, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot fit normalizer on empty population")
	}

	n := &Normalizer{
		mean:       make(map[string]float64),
		stddev:     make(map[string]float64),
		degenerate: make(map[string]bool),
		log:        logger.WithComponent("feature_normalizer"),
	}

	qualifying := make([]map[string]float64, 0, len(records))
	for i := range records {
		if Qualifies(&records[i], minGames, minMPG) {
			qualifying = append(qualifying, Extract(&records[i]))
		}
	}
	n.QualifyingCount = len(qualifying)

	if len(qualifying) == 0 {
		n.FallbackAll = true
		n.log.WithFields(logrus.Fields{
			"population": len(records),
			"min_games":  minGames,
			"min_mpg":    minMPG,
		}).Warn("No players meet qualification floor, fitting on full population")
		for i := range records {
			qualifying = append(qualifying, Extract(&records[i]))
		}
	}

	for _, name := range FeatureNames {
		values := make([]float64, 0, len(qualifying))
		for _, feats := range qualifying {
			if v := feats[name]; !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			n.mean[name] = 0
			n.stddev[name] = 0
			n.degenerate[name] = true
			continue
		}

		mean, sd := stat.MeanStdDev(values, nil)
		n.mean[name] = mean
		n.stddev[name] = sd
		if sd == 0 || math.IsNaN(sd) {
			// Zero-variance feature: every player gets a neutral z-score.
			n.degenerate[name] = true
			n.log.WithField("feature", name).Warn("Degenerate feature variance, substituting neutral z-scores")
		}
	}

	return n, nil
}

// ZScores standardizes one record against the fitted population. The second
// return value reports whether any feature was missing and substituted with
// the population mean (neutral z-score of zero).
func (n *Normalizer) ZScores(r *types.PlayerStatRecord) (map[string]float64, bool) {
	feats := Extract(r)
	z := make(map[string]float64, len(FeatureNames))
	degraded := false

	for _, name := range FeatureNames {
		v := feats[name]
		if math.IsNaN(v) {
			z[name] = 0
			degraded = true
			continue
		}
		if n.degenerate[name] {
			z[name] = 0
			continue
		}
		z[name] = (v - n.mean[name]) / n.stddev[name]
	}

	return z, degraded
}

// Mean returns the fitted population mean for a feature.
func (n *Normalizer) Mean(feature string) float64 { return n.mean[feature] }

// Degenerate reports whether a feature had zero variance in the population.
func (n *Normalizer) Degenerate(feature string) bool { return n.degenerate[feature] }
