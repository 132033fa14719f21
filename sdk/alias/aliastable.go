// Package alias 提供可逆取樣用的定點數別名表 (Alias Table) 建構演算法。
//
// 本檔案 (aliastable.go) 實作了 Vose's Alias Method 的「精確守恆」定點數版本。
//
// 演算法原理：
//   - 將任意離散分佈切成 L 個容量相同的槽位 (Bucket)，每槽容量 2^mu 單位。
//   - 每個槽位只存放「自己」和「別名 (Alias)」兩個選項：自己保留 Keep[i] 單位，
//     剩餘 2^mu - Keep[i] 單位捐給 Alt[i]。
//   - 下游以「先均勻選槽、再依 Keep 與 mu 位亂數比較決定自己或別名」重現分佈；
//     本套件只負責建表，不做任何抽樣。
//
// 特性：
//   - 建表時間：O(L log L)（離散化排序為瓶頸），配對本身 O(L)。
//   - 質量精確守恆：所有槽位單位總和恰為 L * 2^mu，捨入只會在槽位間搬移質量，
//     不會創造或遺失質量；表編碼出的分佈在定點數下加總恰為 1。
//   - 逐項誤差 < 1 單位 = 1/(L * 2^mu) <= epsilon/2。
//   - 確定性：相同輸入必得到位元等同的 (Alt, Keep, Mu)，建表過程無任何亂數。
//
// 實作細節：
//   - 全整數配對運算 (Integer Pairing)，避免浮點數精度誤差 (0.999... != 1.0)。
//   - 內建溢位檢查 (Safe Multiply)，確保 L * 2^mu 在安全範圍內運作。
//   - 剛好填滿的槽位一律自別名 (Alt[i] = i, Keep[i] = 2^mu)，查表時遮罩到 mu 位。

package alias

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/zintix-labs/qprep/errs"
)

// 分類哨兵：呼叫端以 errors.Is 比對失敗類別，詳細訊息在外層 errs.E。
var (
	// ErrInvalidDistribution : 輸入機率向量不合法（空、含負值/NaN/Inf、總和偏離 1）。
	ErrInvalidDistribution = errors.New("alias: invalid distribution")

	// ErrPrecision : epsilon 不合法，或推得的 mu 超出可行範圍。
	ErrPrecision = errors.New("alias: precision out of range")
)

const (
	// DefaultEpsilon 為未指定容許誤差時的預設值，
	// 即逐項機率近似誤差上限 1e-5。
	DefaultEpsilon = 1.0e-5

	// MaxMu 為 mu 的合理上限；再高則 L * 2^mu 超出 float64 可精確離散化的範圍。
	MaxMu = 48

	// sumTol 為輸入機率總和相對於 1 的容許偏差。
	sumTol = 1.0e-8

	// maxTotalUnits : L * 2^mu 的上限 (2^53)，確保離散化目標在 float64 下精確。
	maxTotalUnits = uint64(1) << 53
)

// Table 是一張建好即凍結的定點數別名表。
//
// 結構欄位說明：
//   - Alt: 別名索引。槽位 i 未保留的質量全數捐給 Alt[i]；剛好填滿的槽位自別名。
//   - Keep: 每個槽位保留給自己的單位數，範圍 [0, 2^Mu]；值 2^Mu 僅出現在
//     剛好填滿（必自別名）的槽位。
//   - Mu: 定點數精度位元數。
//   - Size: 槽位數量，即離散分佈的結果數 L。
//
// 不變量：
//   - Alt[i] 屬於 [0, Size)。
//   - sum_i ( Keep[i] + 捐入 i 的單位 ) == Size * 2^Mu，逐槽恰為 2^Mu。
//   - 建好後不再變動；併發唯讀安全。
type Table struct {
	Alt  []int
	Keep []uint64
	Mu   int
	Size int
}

// PrecisionFor 回傳將 l 項分佈的逐項誤差壓在 epsilon 以下所需的 mu。
//
// 公式：mu = ceil(-log2(epsilon * l)) + 1。多出的 1 位讓離散化誤差
// (< 1 單位 = 1/(l * 2^mu)) 僅佔 epsilon 的一半，保留正規化餘裕。
//
// 失敗情形（回傳 ErrPrecision）：
//   - epsilon <= 0 或 NaN。
//   - 推得的 mu 非正（epsilon 大到 1 位都不需要，視為呼叫錯誤）。
//   - 推得的 mu 超過 MaxMu。
func PrecisionFor(l int, epsilon float64) (int, error) {
	if l < 1 {
		return 0, errs.Mark(ErrInvalidDistribution, "empty probability vector", fmt.Sprintf("l=%d", l))
	}
	if math.IsNaN(epsilon) || epsilon <= 0 {
		return 0, errs.Mark(ErrPrecision, "epsilon must be positive", fmt.Sprintf("epsilon=%v", epsilon))
	}

	raw := math.Ceil(-math.Log2(epsilon*float64(l))) + 1
	if raw < 1 {
		return 0, errs.Mark(ErrPrecision, "implied precision is non-positive",
			fmt.Sprintf("epsilon=%v l=%d mu=%v", epsilon, l, raw))
	}
	if raw > MaxMu {
		return 0, errs.Mark(ErrPrecision, "implied precision exceeds limit",
			fmt.Sprintf("epsilon=%v l=%d mu=%v max=%d", epsilon, l, raw, MaxMu))
	}
	return int(raw), nil
}

// Build 根據輸入的機率向量與容許誤差建立 Table。
//
// 輸入說明：
//   - probabilities: 長度 L >= 1 的非負實數向量，總和需在 1 的容許偏差內
//     （建表時會以實際總和正規化，確保單位數精確守恆）。
//   - epsilon: 逐項機率近似誤差上限，必須為正。
//
// 處理流程：
//
// 1) 驗證輸入：空向量、負值、NaN/Inf、總和偏離 1 皆回傳 ErrInvalidDistribution。
//
// 2) 以 PrecisionFor 推得 mu，並檢查 L * 2^mu 不溢位。
//
// 3) 離散化：每項目標單位數 t_i = p_i / sum * L * 2^mu，取整後用最大餘數法
// 分配剩餘單位（餘數相同時低索引優先），使單位總和恰為 L * 2^mu。
//
// 4) 兩疊配對：未滿 (small) 與過滿 (large) 的槽位以 LIFO 互相配對，
// 每次讓一個未滿槽位定案（Keep = 自身單位、Alt = 過滿槽位），
// 並從過滿槽位扣走補缺的單位，直到所有槽位恰為 2^mu 單位。
//
// 5) 剛好填滿的槽位（含配對後變滿者）定案為 Keep = 2^mu、Alt = 自己。
//
// 相同輸入必得到位元等同的結果；失敗時不會留下半成品。
func Build(probabilities []float64, epsilon float64) (*Table, error) {
	n := len(probabilities)
	if n == 0 {
		return nil, errs.Mark(ErrInvalidDistribution, "empty probability vector", "")
	}

	for i, p := range probabilities {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errs.Mark(ErrInvalidDistribution, "probability is not finite",
				fmt.Sprintf("index=%d value=%v", i, p))
		}
		if p < 0 {
			return nil, errs.Mark(ErrInvalidDistribution, "negative probability",
				fmt.Sprintf("index=%d value=%v", i, p))
		}
	}

	sum := floats.Sum(probabilities)
	if math.Abs(sum-1) > sumTol {
		return nil, errs.Mark(ErrInvalidDistribution, "probabilities do not sum to 1",
			fmt.Sprintf("sum=%v tolerance=%v", sum, sumTol))
	}

	mu, err := PrecisionFor(n, epsilon)
	if err != nil {
		return nil, err
	}

	bucket := uint64(1) << mu
	if hi, lo := bits.Mul64(uint64(n), bucket); hi != 0 || lo > maxTotalUnits {
		return nil, errs.Mark(ErrPrecision, "total units overflow exact range",
			fmt.Sprintf("l=%d mu=%d", n, mu))
	}
	total := uint64(n) * bucket

	units := discretize(probabilities, sum, total)

	alt := make([]int, n)
	keep := make([]uint64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)

	for i, u := range units {
		switch {
		case u < bucket:
			small = append(small, i)
		case u > bucket:
			large = append(large, i)
		default:
			keep[i] = bucket // 剛好填滿：自別名，查表遮罩後為 0，交換等同不動
			alt[i] = i
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		h := large[len(large)-1]
		large = large[:len(large)-1]

		keep[s] = units[s]           // s 保留自己的量
		alt[s] = h                   // 缺口由 h 捐出補滿
		units[h] -= bucket - units[s] // 維持 sum(units) == total 的不變性

		switch {
		case units[h] < bucket:
			small = append(small, h)
		case units[h] > bucket:
			large = append(large, h)
		default:
			keep[h] = bucket
			alt[h] = h
		}
	}

	// 單位總和守恆之下，一疊清空時另一疊剩下的槽位必定剛好填滿
	for _, i := range small {
		keep[i] = bucket
		alt[i] = i
	}
	for _, i := range large {
		keep[i] = bucket
		alt[i] = i
	}

	return &Table{
		Alt:  alt,
		Keep: keep,
		Mu:   mu,
		Size: n,
	}, nil
}

// discretize 把機率向量換成單位數向量，總和恰為 total。
//
// 先取整數部分，再依小數餘數由大到小（同餘數低索引優先）逐一補足剩餘單位，
// 即最大餘數法 (Largest Remainder)。排序鍵完全由輸入決定，結果具確定性。
func discretize(probabilities []float64, sum float64, total uint64) []uint64 {
	n := len(probabilities)
	units := make([]uint64, n)
	fracs := make([]float64, n)

	assigned := uint64(0)
	for i, p := range probabilities {
		t := p / sum * float64(total)
		base := math.Floor(t)
		units[i] = uint64(base)
		fracs[i] = t - base
		assigned += units[i]
	}

	if assigned > total {
		panic("alias: discretization accounting broken")
	}
	rem := total - assigned
	if rem > uint64(n) {
		panic("alias: discretization accounting broken")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if fracs[a] != fracs[b] {
			return cmp.Compare(fracs[b], fracs[a]) // 大餘數優先
		}
		return cmp.Compare(a, b)
	})

	for k := uint64(0); k < rem; k++ {
		units[order[k]]++
	}
	return units
}

// TotalUnits 回傳整張表的單位總數 Size * 2^Mu。
func (t *Table) TotalUnits() uint64 {
	return uint64(t.Size) << t.Mu
}

// EffectiveUnits 回傳表編碼給結果 l 的精確單位數：
// 自己保留的 Keep[l]，加上所有別名指向 l 的槽位捐入的單位。
func (t *Table) EffectiveUnits(l int) uint64 {
	bucket := uint64(1) << t.Mu
	u := t.Keep[l]
	for j, a := range t.Alt {
		if a == l && j != l {
			u += bucket - t.Keep[j]
		}
	}
	return u
}

// EffectiveProb 回傳表編碼給結果 l 的機率 EffectiveUnits(l) / TotalUnits()。
// 與原始輸入的逐項差距保證在 epsilon 以內。
func (t *Table) EffectiveProb(l int) float64 {
	return float64(t.EffectiveUnits(l)) / float64(t.TotalUnits())
}

// KeepMasked 回傳遮罩到 Mu 位後的 Keep 值副本，即查表原語實際載入的資料。
// 剛好填滿的槽位 (Keep = 2^Mu) 遮罩後為 0；因其必自別名，查表後的比較與
// 交換對分佈沒有影響。
func (t *Table) KeepMasked() []uint64 {
	bucket := uint64(1) << t.Mu
	out := make([]uint64, len(t.Keep))
	for i, k := range t.Keep {
		out[i] = k & (bucket - 1)
	}
	return out
}

// Equal 比較兩張表是否逐位元相同（Alt、Keep、Mu、Size 全部一致）。
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Mu != o.Mu || t.Size != o.Size {
		return false
	}
	for i := range t.Alt {
		if t.Alt[i] != o.Alt[i] || t.Keep[i] != o.Keep[i] {
			return false
		}
	}
	return true
}
