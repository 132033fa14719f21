// Package prep 組裝 coherent alias sampling 的狀態製備取樣器。
//
// 本檔案 (sampler.go) 實作了核心的 Sampler 值物件 (Value Object)。
//
// 背景：
//   - 目標是在選擇暫存器上製備加權疊加：對每個結果 l 以機率 p_l 出現，
//     製備成本與 L 無關（查表原語本身除外）。
//   - 做法為 coherent alias sampling：古典階段先把 p 編成定點數別名表，
//     可逆階段用固定的五步原語序列把均勻分佈轉成表編碼的分佈。
//
// 值語意：
//   - Sampler 只能經由工廠函式建立，建立當下完成全部驗證與凍結；
//     不存在半成品狀態。
//   - 等值與指紋皆定義在 (選擇暫存器描述, Alt, Keep, Mu) 的結構內容上，
//     與建構歷程無關；表相同的兩個取樣器不可區分，供上游組裝端
//     去重複 (dedup) 與快取。
//   - 所有存取器回傳副本；凍結後的內容無法經由任何公開路徑改動。
//   - 凍結即不再變動，跨 goroutine 唯讀併發安全。
package prep

import (
	"encoding/binary"
	"hash/fnv"
	"slices"

	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
)

// Sampler 是凍結的狀態製備取樣器：
// 定點數別名表加上由 (L, mu) 推導的暫存器佈局。
type Sampler struct {
	sel  SelectionDescriptor
	junk JunkDescriptors
	alt  []int
	keep []uint64
	mu   int
}

// FromLCUProbs 由機率向量與容許誤差建立取樣器。
//
// 流程：建表 (alias.Build) -> 佈局 (Layout) -> 凍結。
// 建表失敗時錯誤原樣傳出（ErrInvalidDistribution / ErrPrecision）。
func FromLCUProbs(probabilities []float64, epsilon float64) (*Sampler, error) {
	tab, err := alias.Build(probabilities, epsilon)
	if err != nil {
		return nil, err
	}
	return FromTable(tab)
}

// FromLCUProbsDefault 同 FromLCUProbs，使用預設容許誤差 alias.DefaultEpsilon。
func FromLCUProbsDefault(probabilities []float64) (*Sampler, error) {
	return FromLCUProbs(probabilities, alias.DefaultEpsilon)
}

// FromTable 由既有的別名表建立取樣器；表內容會被複製後凍結。
//
// 表需滿足建表階段的全部不變量（Alt 在範圍內、Keep 不超過 2^Mu、
// 剛好填滿者自別名）；不合法的表回傳 ErrInvalidDistribution。
func FromTable(tab *alias.Table) (*Sampler, error) {
	if tab == nil || tab.Size < 1 {
		return nil, errs.Mark(alias.ErrInvalidDistribution, "nil or empty alias table", "")
	}
	if tab.Mu < 1 || tab.Mu > alias.MaxMu {
		return nil, errs.Mark(alias.ErrPrecision, "table precision out of range", "")
	}
	if len(tab.Alt) != tab.Size || len(tab.Keep) != tab.Size {
		return nil, errs.Mark(alias.ErrInvalidDistribution, "table arrays disagree with size", "")
	}
	bucket := uint64(1) << tab.Mu
	for i := 0; i < tab.Size; i++ {
		if tab.Alt[i] < 0 || tab.Alt[i] >= tab.Size {
			return nil, errs.Mark(alias.ErrInvalidDistribution, "alias index out of range", "")
		}
		if tab.Keep[i] > bucket {
			return nil, errs.Mark(alias.ErrInvalidDistribution, "keep value exceeds bucket", "")
		}
		if tab.Keep[i] == bucket && tab.Alt[i] != i {
			return nil, errs.Mark(alias.ErrInvalidDistribution, "full bucket must self-alias", "")
		}
	}

	sel, junk := Layout(tab.Size, tab.Mu)
	return &Sampler{
		sel:  sel,
		junk: junk,
		alt:  slices.Clone(tab.Alt),
		keep: slices.Clone(tab.Keep),
		mu:   tab.Mu,
	}, nil
}

// Selection 回傳選擇暫存器描述。
func (s *Sampler) Selection() SelectionDescriptor { return s.sel }

// Junk 回傳草稿暫存器描述。
func (s *Sampler) Junk() JunkDescriptors { return s.junk }

// Size 回傳結果數 L。
func (s *Sampler) Size() int { return s.sel.IterationLength }

// Mu 回傳定點數精度位元數。
func (s *Sampler) Mu() int { return s.mu }

// SelectionBitsize 回傳選擇暫存器位寬 ceil(log2(L))。
func (s *Sampler) SelectionBitsize() int { return s.sel.Width }

// SigmaMuBitsize 回傳均勻亂數暫存器位寬，即 mu。
func (s *Sampler) SigmaMuBitsize() int { return s.junk.SigmaMu }

// AlternatesBitsize 回傳別名值暫存器位寬，與選擇暫存器等寬。
func (s *Sampler) AlternatesBitsize() int { return s.junk.Alt }

// KeepBitsize 回傳保留值暫存器位寬，即 mu。
func (s *Sampler) KeepBitsize() int { return s.junk.Keep }

// TotalBits 回傳整套佈局的位寬總和 = 2*ceil(log2(L)) + 2*mu + 1
// （選擇暫存器加上全部草稿暫存器）。
func (s *Sampler) TotalBits() int { return s.sel.Width + s.junk.Total() }

// Alt 回傳別名表索引的副本。
func (s *Sampler) Alt() []int { return slices.Clone(s.alt) }

// Keep 回傳保留單位數的副本（未遮罩，剛好填滿的槽位為 2^Mu）。
func (s *Sampler) Keep() []uint64 { return slices.Clone(s.keep) }

// Table 以副本重建底層別名表，供報表與匯出使用。
func (s *Sampler) Table() *alias.Table {
	return &alias.Table{
		Alt:  slices.Clone(s.alt),
		Keep: slices.Clone(s.keep),
		Mu:   s.mu,
		Size: s.sel.IterationLength,
	}
}

// EffectiveProb 回傳表編碼給結果 l 的機率。
func (s *Sampler) EffectiveProb(l int) float64 {
	return s.Table().EffectiveProb(l)
}

// Equal 結構等值：選擇暫存器描述、Alt、Keep、Mu 全部一致即相等，
// 與兩者各自如何建構無關。
func (s *Sampler) Equal(o *Sampler) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.sel == o.sel &&
		s.mu == o.mu &&
		slices.Equal(s.alt, o.alt) &&
		slices.Equal(s.keep, o.keep)
}

// Fingerprint 回傳結構內容的 64 位指紋 (FNV-1a)，
// 等值的取樣器必有相同指紋，供上游以雜湊快取分解結果。
func (s *Sampler) Fingerprint() uint64 {
	h := fnv.New64a()
	var b [8]byte

	put := func(v uint64) {
		binary.LittleEndian.PutUint64(b[:], v)
		h.Write(b[:])
	}

	put(uint64(s.sel.Width))
	put(uint64(s.sel.IterationLength))
	put(uint64(s.mu))
	for _, a := range s.alt {
		put(uint64(a))
	}
	for _, k := range s.keep {
		put(k)
	}
	return h.Sum64()
}
