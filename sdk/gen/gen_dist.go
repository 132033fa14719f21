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

// Package gen 產生幾個固定家族的測試用機率向量。
//
// 全部是確定性的純計算（沒有亂數），輸出一律正規化到總和 1，
// 可以直接餵給編譯管線。主要給壓測、profiling 與測試當素材。
package gen

import (
	"math"

	"github.com/zintix-labs/qprep/errs"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform 回傳 l 個等機率結果的機率向量。
func Uniform(l int) ([]float64, error) {
	if l < 1 {
		return nil, errs.Warnf("gen: size must be positive, got %d", l)
	}
	out := make([]float64, l)
	p := 1 / float64(l)
	for i := range out {
		out[i] = p
	}
	return out, nil
}

// Zipf 回傳 p_k ∝ 1/k^s（k=1..l）的冪律分佈。
func Zipf(l int, s float64) ([]float64, error) {
	if l < 1 {
		return nil, errs.Warnf("gen: size must be positive, got %d", l)
	}
	if s <= 0 || math.IsNaN(s) {
		return nil, errs.Warnf("gen: exponent must be positive, got %v", s)
	}
	out := make([]float64, l)
	total := 0.0
	for i := range out {
		out[i] = math.Pow(float64(i+1), -s)
		total += out[i]
	}
	return normalize(out, total)
}

// Binomial 回傳 Binomial(n, p) 的機率向量，長度 n+1。
func Binomial(n int, p float64) ([]float64, error) {
	if n < 1 {
		return nil, errs.Warnf("gen: trial count must be positive, got %d", n)
	}
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return nil, errs.Warnf("gen: success probability must be in (0,1), got %v", p)
	}
	bin := distuv.Binomial{N: float64(n), P: p}
	out := make([]float64, n+1)
	total := 0.0
	for k := range out {
		out[k] = bin.Prob(float64(k))
		total += out[k]
	}
	return normalize(out, total)
}

// Poisson 回傳 Poisson(lambda) 截斷到前 l 個結果的機率向量。
//
// 截斷丟掉的尾端質量會攤回保留的項，所以輸出仍然總和 1；
// lambda 遠大於 l 時分佈已經不像 Poisson，這裡不擋，由呼叫端自己斟酌。
func Poisson(l int, lambda float64) ([]float64, error) {
	if l < 1 {
		return nil, errs.Warnf("gen: size must be positive, got %d", l)
	}
	if lambda <= 0 || math.IsNaN(lambda) {
		return nil, errs.Warnf("gen: lambda must be positive, got %v", lambda)
	}
	poi := distuv.Poisson{Lambda: lambda}
	out := make([]float64, l)
	total := 0.0
	for k := range out {
		out[k] = poi.Prob(float64(k))
		total += out[k]
	}
	return normalize(out, total)
}

// normalize 把向量正規化到總和 1；質量蒸發到 0 視為參數組合不可用。
func normalize(out []float64, total float64) ([]float64, error) {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, errs.Warnf("gen: probability mass vanished, total=%v", total)
	}
	for i := range out {
		out[i] /= total
	}
	return out, nil
}
