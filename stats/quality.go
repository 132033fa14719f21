package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// QualityReport 查表品質報告
type QualityReport struct {
	Summary *SummaryReport `json:"Summary"`
	Error   *ErrorReport   `json:"Error"`
	Dist    *DistReport    `json:"Dist"`
	target  []float64
	eff     []float64
	isDone  bool
}

type SummaryReport struct {
	DistName      string      `json:"DistName"`
	DistID        spec.DistID `json:"DistID"`
	Size          int         `json:"Size"`
	Mu            int         `json:"Mu"`
	Epsilon       float64     `json:"Epsilon"`
	SelectionBits int         `json:"SelectionBits"`
	ScratchBits   int         `json:"ScratchBits"`
	TotalBits     int         `json:"TotalBits"`
	QROMRows      int         `json:"QROMRows"`
	Fingerprint   string      `json:"Fingerprint"`
}

// ErrorReport 離散化誤差統計
//
// 建表時不計算，避免把報告成本混進建表路徑。Done() 會將結果整理填入
type ErrorReport struct {
	MaxAbsErr    float64 `json:"MaxAbsErr"`
	MeanAbsErr   float64 `json:"MeanAbsErr"`
	TVD          float64 `json:"TVD"`
	KLDiv        float64 `json:"KLDiv"`
	KLDiverged   bool    `json:"KLDiverged"` // eff 支撐集沒蓋住 target 時 KL 發散
	JSDiv        float64 `json:"JSDiv"`
	Hellinger    float64 `json:"Hellinger"`
	UnitProb     float64 `json:"UnitProb"` // 1 / (L * 2^mu)
	Budget       float64 `json:"Budget"`
	WithinBudget bool    `json:"WithinBudget"`
}

// DistReport 混合帶落點統計
type DistReport struct {
	MixBucket []string  `json:"MixBucket"`
	Collect   []int     `json:"Collect"`
	Share     []float64 `json:"Share"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Evaluate 對照目標分佈與編譯結果, 產生品質報告。
//
// 誤差與散度欄位由 Done 填入; Evaluate 只收集原始向量與混合帶計數。
func Evaluate(ds *spec.DistSetting, smp *prep.Sampler) (*QualityReport, error) {
	if ds == nil {
		return nil, errs.NewFatal("nil dist setting")
	}
	if smp == nil {
		return nil, errs.NewFatal("nil sampler")
	}
	if ds.Size() != smp.Size() {
		return nil, errs.NewWarn("setting size disagrees with sampler size")
	}

	target, err := ds.Probabilities()
	if err != nil {
		return nil, errs.Wrap(err, "can not evaluate dist setting")
	}
	sum := floats.Sum(target)
	if sum <= 0 {
		return nil, errs.NewWarn("target distribution has no mass")
	}
	floats.Scale(1/sum, target)

	l := smp.Size()
	eff := make([]float64, l)
	for j := 0; j < l; j++ {
		eff[j] = smp.EffectiveProb(j)
	}

	labels := Mixing.MixBucketStr()
	collect := make([]int, len(labels))
	mb := Mixing.GetBucketByMu(smp.Mu())
	for _, k := range smp.Keep() {
		collect[mb.Index(k)]++
	}

	report := &QualityReport{
		Summary: &SummaryReport{
			DistName:      ds.Name,
			DistID:        ds.DistID,
			Size:          l,
			Mu:            smp.Mu(),
			Epsilon:       ds.Epsilon,
			SelectionBits: smp.SelectionBitsize(),
			ScratchBits:   smp.Junk().Total(),
			TotalBits:     smp.TotalBits(),
			QROMRows:      l,
			Fingerprint:   fmt.Sprintf("%016x", smp.Fingerprint()),
		},
		Error: &ErrorReport{
			UnitProb: math.Ldexp(1/float64(l), -smp.Mu()),
			Budget:   ds.Epsilon,
		},
		Dist: &DistReport{
			MixBucket: labels,
			Collect:   collect,
			Share:     make([]float64, len(labels)),
		},
		target: target,
		eff:    eff,
	}
	return report, nil
}

// Done 將收集到的向量轉換為最終統計結果並鎖定 isDone 標記。
//
// 散度計算不便宜, 所以不在 Evaluate 內做;
//
// 請使用 Done 來通知報告收集已經完成，可以一次性計算統計結果
func (s *QualityReport) Done() {
	if s.isDone {
		return
	}
	// Error
	s.Error.MaxAbsErr = floats.Distance(s.eff, s.target, math.Inf(1))
	l1 := floats.Distance(s.eff, s.target, 1)
	s.Error.TVD = 0.5 * l1
	s.Error.MeanAbsErr = l1 / float64(len(s.target))

	kl := stat.KullbackLeibler(s.target, s.eff)
	if math.IsInf(kl, 0) || math.IsNaN(kl) {
		s.Error.KLDiv = 0
		s.Error.KLDiverged = true
	} else {
		s.Error.KLDiv = kl
	}
	s.Error.JSDiv = stat.JensenShannon(s.target, s.eff)
	s.Error.Hellinger = stat.Hellinger(s.target, s.eff)
	s.Error.WithinBudget = s.Error.MaxAbsErr <= s.Error.Budget

	// Dist
	for i, c := range s.Dist.Collect {
		s.Dist.Share[i] = float64(c) / float64(s.Summary.Size)
	}

	s.isDone = true
}

// MaxErr 回傳最大單點誤差（未 Done 時直接計算）
func (s *QualityReport) MaxErr() float64 {
	if s.isDone {
		return s.Error.MaxAbsErr
	}
	return floats.Distance(s.eff, s.target, math.Inf(1))
}

func (s *QualityReport) WriteWith(w io.Writer, rep QualityReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *QualityReport) StdOut(ut time.Duration) {
	formatDuration(ut, 1)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.DistName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, tables int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	tps := int(float64(tables) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ntps : %d tables/sec\n", sec, tps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\ntps : %d tables/sec\n", m, s, tps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ntps : %d tables/sec\n", h, m, s, tps)
}

// StdOut

func (s *QualityReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	kl := p.Sprintf("%.3e", s.Error.KLDiv)
	if s.Error.KLDiverged {
		kl = "diverged"
	}
	basic := map[string]string{
		"Dist Name":      p.Sprintf("%s", s.Summary.DistName),
		"Dist ID":        fmt.Sprintf("%s", s.Summary.DistID),
		"Outcomes":       p.Sprintf("%d", s.Summary.Size),
		"Precision mu":   p.Sprintf("%d", s.Summary.Mu),
		"Epsilon":        p.Sprintf("%.3e", s.Summary.Epsilon),
		"Max Abs Err":    p.Sprintf("%.3e", s.Error.MaxAbsErr),
		"Mean Abs Err":   p.Sprintf("%.3e", s.Error.MeanAbsErr),
		"TVD":            p.Sprintf("%.3e", s.Error.TVD),
		"KL Div":         kl,
		"JS Div":         p.Sprintf("%.3e", s.Error.JSDiv),
		"Hellinger":      p.Sprintf("%.3e", s.Error.Hellinger),
		"Selection Bits": p.Sprintf("%d", s.Summary.SelectionBits),
		"Scratch Bits":   p.Sprintf("%d", s.Summary.ScratchBits),
		"Total Bits":     p.Sprintf("%d", s.Summary.TotalBits),
		"QROM Rows":      p.Sprintf("%d", s.Summary.QROMRows),
		"Within Budget":  p.Sprintf("%t", s.Error.WithinBudget),
		"Fingerprint":    s.Summary.Fingerprint,
	}
	keys := []string{"Dist Name", "Dist ID", "Outcomes", "Precision mu", "Epsilon", "Max Abs Err", "Mean Abs Err", "TVD", "KL Div", "JS Div", "Hellinger", "Selection Bits", "Scratch Bits", "Total Bits", "QROM Rows", "Within Budget", "Fingerprint"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
