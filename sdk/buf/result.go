package buf

import (
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
)

// Stage 標記單筆編譯最後完成到的階段。
type Stage uint8

const (
	StageLoad Stage = iota
	StageCompile
	StageEvaluate
	StageDone
)

var stageStr = map[Stage]string{
	StageLoad:     "load",
	StageCompile:  "compile",
	StageEvaluate: "evaluate",
	StageDone:     "done",
}

func (s Stage) String() string {
	if str, ok := stageStr[s]; ok {
		return str
	}
	return "unknown"
}

// CompileResult 保存一個分佈從載入到評估的完整結果。
//
// 批次流程中每個 worker 重用同一個實體：載入設定、編譯取樣器、
// 評估品質各階段依序落地，失敗時停在當下階段；交給 recorder 後
// 以 Reset 指向下一個分佈。
type CompileResult struct {
	DistID   spec.DistID          // 分佈編號
	DistName string               // 分佈名稱
	Size     int                  // 結果數 L
	Epsilon  float64              // 誤差預算
	Stage    Stage                // 最後完成的階段
	Sampler  *prep.Sampler        // 編譯成品
	Report   *stats.QualityReport // 品質報告
	Err      error                // 失敗原因（成功時為 nil）
	BuildNs  int64                // 編譯耗時（奈秒）
	IsEnd    bool                 // 結束旗標
}

// NewCompileResult 建立指向單一分佈的 CompileResult 實體。
// 身分取自 catalog 條目，所以設定檔載入失敗時也有可報告的身分。
func NewCompileResult(id spec.DistID, name string) *CompileResult {
	cr := &CompileResult{
		DistID:   id,
		DistName: name,
		Stage:    StageLoad,
	}
	return cr
}

// AppendSetting 落地載入階段：補上設定檔內的規模與預算。
func (c *CompileResult) AppendSetting(ds *spec.DistSetting) {
	if c.IsEnd {
		panic("compile result is already end, but still send new result")
	}
	c.Size = ds.Size()
	c.Epsilon = ds.Epsilon
	c.Stage = StageCompile
}

// AppendSampler 落地編譯階段。
func (c *CompileResult) AppendSampler(smp *prep.Sampler) {
	if c.IsEnd {
		panic("compile result is already end, but still send new result")
	}
	c.Sampler = smp
	c.Stage = StageEvaluate
}

// AppendReport 落地評估階段。
func (c *CompileResult) AppendReport(rep *stats.QualityReport) {
	if c.IsEnd {
		panic("compile result is already end, but still send new result")
	}
	c.Report = rep
	c.Stage = StageDone
}

// Fail 紀錄失敗並結束；Stage 停在失敗發生的階段。
func (c *CompileResult) Fail(err error) {
	if c.IsEnd {
		panic("compile result is already end, but still send new result")
	}
	c.Err = err
	c.IsEnd = true
}

// End : 結束本筆編譯
func (c *CompileResult) End() {
	c.IsEnd = true
}

// OK 回報本筆編譯是否完整走完且無錯。
func (c *CompileResult) OK() bool {
	return c.IsEnd && c.Err == nil && c.Stage == StageDone
}

// Reset 重置累積資料並指向下一個分佈。
func (c *CompileResult) Reset(id spec.DistID, name string) {
	c.DistID = id
	c.DistName = name
	c.Size = 0
	c.Epsilon = 0
	c.Stage = StageLoad
	c.Sampler = nil
	c.Report = nil
	c.Err = nil
	c.BuildNs = 0
	c.IsEnd = false
}
