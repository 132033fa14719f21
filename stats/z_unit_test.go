// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
)

// buildQuality compiles a sampler for the setting and evaluates it.
func buildQuality(t *testing.T, ds *spec.DistSetting) *stats.QualityReport {
	t.Helper()
	probs, err := ds.Probabilities()
	if err != nil {
		t.Fatalf("Probabilities: %v", err)
	}
	smp, err := prep.FromLCUProbs(probs, ds.Epsilon)
	if err != nil {
		t.Fatalf("FromLCUProbs: %v", err)
	}
	rep, err := stats.Evaluate(ds, smp)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	rep.Done()
	return rep
}

func TestQualityReportExactDiscretization(t *testing.T) {
	// 0.5/0.25/0.25 lands on whole sub-bucket units at mu=2, so every
	// divergence collapses to zero.
	ds := &spec.DistSetting{
		DistID:  "exact",
		Name:    "Exact",
		Probs:   []float64{0.5, 0.25, 0.25},
		Epsilon: 0.2,
	}
	rep := buildQuality(t, ds)

	if rep.Summary.Mu != 2 {
		t.Fatalf("Mu got %d want 2", rep.Summary.Mu)
	}
	if rep.Summary.SelectionBits != 2 || rep.Summary.ScratchBits != 7 || rep.Summary.TotalBits != 9 {
		t.Fatalf("widths got (%d,%d,%d) want (2,7,9)",
			rep.Summary.SelectionBits, rep.Summary.ScratchBits, rep.Summary.TotalBits)
	}
	if rep.Summary.QROMRows != 3 {
		t.Fatalf("QROMRows got %d want 3", rep.Summary.QROMRows)
	}
	if len(rep.Summary.Fingerprint) != 16 {
		t.Fatalf("Fingerprint %q should be 16 hex chars", rep.Summary.Fingerprint)
	}

	if rep.Error.MaxAbsErr != 0 || rep.Error.TVD != 0 || rep.Error.MeanAbsErr != 0 {
		t.Fatalf("exact table should have zero error: %+v", rep.Error)
	}
	if rep.Error.KLDiv != 0 || rep.Error.KLDiverged {
		t.Fatalf("KL got %v (diverged=%t) want 0", rep.Error.KLDiv, rep.Error.KLDiverged)
	}
	if rep.Error.JSDiv != 0 || rep.Error.Hellinger != 0 {
		t.Fatalf("JS/Hellinger got %v/%v want 0", rep.Error.JSDiv, rep.Error.Hellinger)
	}
	if !rep.Error.WithinBudget {
		t.Fatal("exact table must be within budget")
	}
	if got, want := rep.Error.UnitProb, 1.0/12.0; math.Abs(got-want) > 1e-15 {
		t.Fatalf("UnitProb got %v want %v", got, want)
	}

	// keep = [4,3,3] over bucket 4: one fully-kept bucket, two in [75%,90%).
	if got := sum(rep.Dist.Collect); got != 3 {
		t.Fatalf("Collect sum got %d want 3", got)
	}
	if rep.Dist.Collect[7] != 1 || rep.Dist.Collect[5] != 2 {
		t.Fatalf("mixing bands got %v", rep.Dist.Collect)
	}
	if math.Abs(rep.Dist.Share[5]-2.0/3.0) > 1e-12 {
		t.Fatalf("Share[5] got %v", rep.Dist.Share[5])
	}
}

func TestQualityReportRoundedDiscretization(t *testing.T) {
	// 7:2:1 at mu=2 cannot land exactly; one leftover unit moves 0.6 of a
	// sub-bucket, so the max error is 0.6/12 = 0.05 wherever it lands.
	ds := &spec.DistSetting{
		DistID:  "w721",
		Name:    "Weighted 7:2:1",
		Weights: []int{7, 2, 1},
		Epsilon: 0.2,
	}
	rep := buildQuality(t, ds)

	if rep.Summary.Mu != 2 {
		t.Fatalf("Mu got %d want 2", rep.Summary.Mu)
	}
	if math.Abs(rep.Error.MaxAbsErr-0.05) > 1e-9 {
		t.Fatalf("MaxAbsErr got %v want 0.05", rep.Error.MaxAbsErr)
	}
	if math.Abs(rep.Error.TVD-0.05) > 1e-9 {
		t.Fatalf("TVD got %v want 0.05", rep.Error.TVD)
	}
	if math.Abs(rep.Error.MeanAbsErr-0.1/3.0) > 1e-9 {
		t.Fatalf("MeanAbsErr got %v want %v", rep.Error.MeanAbsErr, 0.1/3.0)
	}
	if rep.Error.KLDiverged || rep.Error.KLDiv <= 0 {
		t.Fatalf("KL got %v (diverged=%t), want finite positive", rep.Error.KLDiv, rep.Error.KLDiverged)
	}
	if rep.Error.JSDiv <= 0 || rep.Error.Hellinger <= 0 {
		t.Fatalf("JS/Hellinger got %v/%v, want positive", rep.Error.JSDiv, rep.Error.Hellinger)
	}
	if !rep.Error.WithinBudget {
		t.Fatal("error exceeds budget")
	}
	if rep.Error.MaxAbsErr >= rep.Error.UnitProb {
		t.Fatalf("per-entry error %v must stay under one unit %v", rep.Error.MaxAbsErr, rep.Error.UnitProb)
	}

	// The heaviest bucket always ends fully kept regardless of where the
	// leftover unit lands.
	if got := sum(rep.Dist.Collect); got != 3 {
		t.Fatalf("Collect sum got %d want 3", got)
	}
	if rep.Dist.Collect[7] != 1 {
		t.Fatalf("mixing bands got %v, want one fully-kept bucket", rep.Dist.Collect)
	}

	rep.Done() // idempotent
	if math.Abs(rep.Error.MaxAbsErr-0.05) > 1e-9 {
		t.Fatal("MaxAbsErr changed after second Done")
	}
}

func TestMixBucketIndex(t *testing.T) {
	mb := stats.Mixing.GetBucketByMu(3) // bucket = 8
	cases := []struct {
		keep uint64
		want int
	}{
		{0, 0}, // exactly empty
		{1, 2}, // 12.5% -> [10%,25%)
		{2, 3}, // 25%   -> [25%,50%)
		{4, 4}, // 50%   -> [50%,75%)
		{7, 5}, // 87.5% -> [75%,90%)
		{8, 7}, // exactly full
	}
	for _, tc := range cases {
		if got := mb.Index(tc.keep); got != tc.want {
			t.Fatalf("Index(%d) got %d want %d", tc.keep, got, tc.want)
		}
	}

	// A tiny but nonzero keep must not round into the exact-zero band.
	wide := stats.Mixing.GetBucketByMu(40)
	if got := wide.Index(1); got != 1 {
		t.Fatalf("Index(1) at mu=40 got %d want 1", got)
	}
	if got := wide.Index(0); got != 0 {
		t.Fatalf("Index(0) at mu=40 got %d want 0", got)
	}
}

func TestEstimatorBatchQuality(t *testing.T) {
	labels := stats.Mixing.MixBucketStr()
	L := len(labels)

	// 100 synthetic reports with budget-use ratio i/100.
	reports := make([]*stats.QualityReport, 0, 100)
	for i := 0; i < 100; i++ {
		reports = append(reports, &stats.QualityReport{
			Summary: &stats.SummaryReport{Size: 4},
			Error: &stats.ErrorReport{
				MaxAbsErr: float64(i) / 1000.0,
				Budget:    0.1,
				UnitProb:  0.01,
			},
			Dist: &stats.DistReport{MixBucket: labels, Collect: make([]int, L)},
		})
	}

	est := stats.EstimatorBatchQuality(reports)
	if math.Abs(est.ErrStat.ExpMedian.Hat-0.5) > 0.05 {
		t.Fatalf("median use expected ~0.5, got %.3f", est.ErrStat.ExpMedian.Hat)
	}
	if math.Abs(est.ErrStat.ExpPerc.ExpP90.Hat-0.9) > 0.05 {
		t.Fatalf("P90 use expected ~0.9, got %.3f", est.ErrStat.ExpPerc.ExpP90.Hat)
	}
	if math.Abs(est.ErrStat.UsePerc.Use25.Hat-0.26) > 0.02 {
		t.Fatalf("<=25%% use expected ~0.26, got %.3f", est.ErrStat.UsePerc.Use25.Hat)
	}

	// Rounding outcome: err 0 once, err <= 0.005 five times, the rest loose.
	if est.OutcomeStat.Exact.Hat != 0.01 {
		t.Fatalf("Exact rate got %.3f want 0.01", est.OutcomeStat.Exact.Hat)
	}
	if est.OutcomeStat.Tight.Hat != 0.05 {
		t.Fatalf("Tight rate got %.3f want 0.05", est.OutcomeStat.Tight.Hat)
	}
	if est.OutcomeStat.Loose.Hat != 0.94 {
		t.Fatalf("Loose rate got %.3f want 0.94", est.OutcomeStat.Loose.Hat)
	}

	// Mixing narrative: band 2 hit 0/1/2/5 times across ten tables.
	mixSamples := make([]*stats.QualityReport, 10)
	for i := 0; i < 10; i++ {
		collect := make([]int, L)
		switch {
		case i < 3:
			collect[2] = 0
		case i < 7:
			collect[2] = 1
		case i < 9:
			collect[2] = 2
		default:
			collect[2] = 5
		}
		mixSamples[i] = &stats.QualityReport{
			Summary: &stats.SummaryReport{Size: 8},
			Error:   &stats.ErrorReport{Budget: 0.1, UnitProb: 0.01},
			Dist:    &stats.DistReport{MixBucket: labels, Collect: collect},
		}
	}
	est2 := stats.EstimatorBatchQuality(mixSamples)
	band := est2.MixStat.BucketCount[2]
	if band.Zero.Hat != 0.3 {
		t.Fatalf("Zero rate got %.2f want 0.30", band.Zero.Hat)
	}
	if band.One.Hat != 0.4 {
		t.Fatalf("One rate got %.2f want 0.40", band.One.Hat)
	}
	if band.Two.Hat != 0.2 {
		t.Fatalf("Two rate got %.2f want 0.20", band.Two.Hat)
	}
	if band.More.Hat != 0.1 {
		t.Fatalf("More rate got %.2f want 0.10", band.More.Hat)
	}
}

// --- helpers ---

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
