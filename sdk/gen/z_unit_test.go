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

package gen_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/qprep/sdk/gen"
	"github.com/zintix-labs/qprep/sdk/prep"
)

func mustSumOne(t *testing.T, probs []float64) {
	t.Helper()
	sum := 0.0
	for _, p := range probs {
		if p < 0 || math.IsNaN(p) {
			t.Fatalf("bad probability %v in %v", p, probs)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("sum got %v want 1", sum)
	}
}

func TestUniform(t *testing.T) {
	probs, err := gen.Uniform(5)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	if len(probs) != 5 {
		t.Fatalf("len got %d want 5", len(probs))
	}
	for i, p := range probs {
		if p != 0.2 {
			t.Fatalf("probs[%d] got %v want 0.2", i, p)
		}
	}
	mustSumOne(t, probs)

	if _, err := gen.Uniform(0); err == nil {
		t.Fatal("size 0 should fail")
	}
}

func TestZipf(t *testing.T) {
	probs, err := gen.Zipf(8, 1.2)
	if err != nil {
		t.Fatalf("Zipf: %v", err)
	}
	if len(probs) != 8 {
		t.Fatalf("len got %d want 8", len(probs))
	}
	for i := 1; i < len(probs); i++ {
		if probs[i] >= probs[i-1] {
			t.Fatalf("zipf must strictly decrease, probs[%d]=%v probs[%d]=%v", i-1, probs[i-1], i, probs[i])
		}
	}
	mustSumOne(t, probs)

	if _, err := gen.Zipf(8, 0); err == nil {
		t.Fatal("zero exponent should fail")
	}
	if _, err := gen.Zipf(0, 1.2); err == nil {
		t.Fatal("size 0 should fail")
	}
}

func TestBinomial(t *testing.T) {
	n := 10
	probs, err := gen.Binomial(n, 0.5)
	if err != nil {
		t.Fatalf("Binomial: %v", err)
	}
	if len(probs) != n+1 {
		t.Fatalf("len got %d want %d", len(probs), n+1)
	}
	// p=0.5 對稱
	for k := 0; k <= n; k++ {
		if math.Abs(probs[k]-probs[n-k]) > 1e-12 {
			t.Fatalf("not symmetric at k=%d: %v vs %v", k, probs[k], probs[n-k])
		}
	}
	// 眾數在中間
	for k := 0; k <= n; k++ {
		if probs[k] > probs[n/2] {
			t.Fatalf("mode should be at %d, probs[%d]=%v beats %v", n/2, k, probs[k], probs[n/2])
		}
	}
	mustSumOne(t, probs)

	if _, err := gen.Binomial(0, 0.5); err == nil {
		t.Fatal("zero trials should fail")
	}
	if _, err := gen.Binomial(10, 0); err == nil {
		t.Fatal("p=0 should fail")
	}
	if _, err := gen.Binomial(10, 1); err == nil {
		t.Fatal("p=1 should fail")
	}
}

func TestPoisson(t *testing.T) {
	probs, err := gen.Poisson(16, 4.0)
	if err != nil {
		t.Fatalf("Poisson: %v", err)
	}
	if len(probs) != 16 {
		t.Fatalf("len got %d want 16", len(probs))
	}
	// 眾數應落在 lambda 附近（lambda=4 時是 3 或 4）
	mode := 0
	for k, p := range probs {
		if p > probs[mode] {
			mode = k
		}
	}
	if mode != 3 && mode != 4 {
		t.Fatalf("mode got %d want 3 or 4", mode)
	}
	mustSumOne(t, probs)

	if _, err := gen.Poisson(16, 0); err == nil {
		t.Fatal("lambda 0 should fail")
	}
	if _, err := gen.Poisson(0, 4); err == nil {
		t.Fatal("size 0 should fail")
	}
}

// 生成的向量應該可以直接餵給編譯管線
func TestGeneratedVectorsCompile(t *testing.T) {
	cases := map[string][]float64{}

	if probs, err := gen.Zipf(12, 1.1); err == nil {
		cases["zipf"] = probs
	} else {
		t.Fatalf("Zipf: %v", err)
	}
	if probs, err := gen.Binomial(8, 0.3); err == nil {
		cases["binomial"] = probs
	} else {
		t.Fatalf("Binomial: %v", err)
	}
	if probs, err := gen.Poisson(12, 2.5); err == nil {
		cases["poisson"] = probs
	} else {
		t.Fatalf("Poisson: %v", err)
	}

	for name, probs := range cases {
		smp, err := prep.FromLCUProbs(probs, 1e-4)
		if err != nil {
			t.Fatalf("%s: compile failed: %v", name, err)
		}
		if smp.Size() != len(probs) {
			t.Fatalf("%s: size got %d want %d", name, smp.Size(), len(probs))
		}
	}
}
