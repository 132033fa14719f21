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

// Package qprep 提供 qprep 編譯器的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Qprep 視為一個「可被後端/批次工具使用的編譯器入口」，它負責把下列兩個必需的地基組裝在一起，並提供編譯分佈表的入口：
//  1. Catalog：分佈目錄（Single Source of Truth / SSOT），定義有哪些目標分佈、各自對應的設定檔名稱（ConfigName）。
//  2. 編譯管線（compile pipeline）：把機率向量離散化成 (alt, keep, mu) 定點別名表，再凍結成 prep.Sampler 值物件。
//
// 設計重點：
//   - Qprep 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - Qprep 會持有一份 Catalog（你要編譯哪一批分佈、哪一套設定檔）。
//   - Sampler 是對外提供查表/分解的最小單位；演算法開發者主要操作的是 sdk 內的型別與資料結構。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Qprep 建立 PrepRuntime，PrepRuntime 對外提供查表/品質/分解。
//   - 批次工具（cmd/run）：由 Qprep 建立 BatchCompiler 進行整批編譯、評估與落地。
//
// 注意：此套編譯器以連貫別名取樣的狀態準備（DistSetting -> Sampler）為中心，不是泛用電路合成框架。
package qprep

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/qprep/catalog"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/sdk/alias"
	"github.com/zintix-labs/qprep/sdk/prep"
	"github.com/zintix-labs/qprep/spec"
	"github.com/zintix-labs/qprep/stats"
	"github.com/zintix-labs/qprep/tabfmt"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//   - 甚至可以用自製的 MultiFS 來合併多個來源。
//
// Qprep 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Qprep 是「組裝器（assembler）」與「運行入口（runtime entry）」：
//
// 它把兩個必需的地基組合起來：
//  1. Catalog：分佈目錄（Single Source of Truth / SSOT），定義有哪些目標分佈、各自對應的設定檔名稱。
//  2. 編譯管線：DistSetting -> alias.Table -> prep.Sampler 的固定流程。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、掃描設定檔、檢查重複與缺漏。
//   - 執行階段（runtime）：依據分佈 ID 編譯 Sampler，或建立 PrepRuntime 對外服務。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Qprep instance」內（不同 Qprep 之間不做全域保證）。
//   - 你要編譯哪一批分佈、哪一套設定檔，必須由 New() 的參數明確決定。
//   - runtime 一旦開始（例如已建立 PrepRuntime 並對外服務），不建議再變更 Catalog（避免非預期行為）。
//
// 實務例子（概念示意，細節依你的實作為準）：
//
//	// 1) 準備 configs（通常是 go:embed 或 DirFS）
//	// 2) 組裝 Qprep，取得可編譯 Sampler 的入口
//	//	lab, _ := qprep.NewAuto(qprep.Configs(cfgFS))
//	//	smp, _ := lab.CompileById("lcu-h2")
//	//	// smp.Decompose(...) -> 取得操作序列（通常再轉成 DTO 回傳）
type Qprep struct {
	cat *catalog.Catalog
	sum []catalog.Summary
}

// New 建立一個 Qprep instance。
//
// 這是「組裝階段（registration/build）」的入口：
//   - 會建立 Catalog（通常同時做檔名存在性/重複性檢查，避免 runtime 才爆）。
//
// 參數要求（是合約的一部分）：
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 DistSetting。
//
// 回傳的 Qprep 會持有 cat（目錄），此時尚未註冊任何分佈。
func New(cfgs []fs.FS) (*Qprep, error) {
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Qprep{
		cat: cata,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Qprep instance。
//
// 等價於 New + RegisterAll + Freeze。
func NewAuto(cfgs []fs.FS) (*Qprep, error) {
	lab, err := New(cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (p *Qprep) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）嘗試解析成
// *spec.DistSetting，並用設定檔內宣告的 DistID/Name 產生對應的 catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error（不會忽略、也不會繼續掃完）。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入。
//     因此不會出現只註冊了一半、導致 catalog 處於半完成狀態的情況。
//  3. 穩定性：會依檔名排序後再處理，確保行為 determinism（方便重現與除錯）。
//
// 注意：
//   - RegisterAll 只負責「把設定檔宣告的分佈資訊放進 Catalog」。
//
// 精度預檢只保證 (L, epsilon) 推得出合法的 mu；實際建表在 Compile 階段才發生。
func (p *Qprep) RegisterAll() error {
	cfgs := p.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.DistID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			// 解析規則與 catalog 載入一致：YAML 走嚴格模式，
			// 拼錯欄位在註冊階段就爆，不會拖到編譯才發現。
			var (
				ds   *spec.DistSetting
				derr error
			)
			switch ext {
			case ".yaml", ".yml":
				ds, derr = spec.GetDistSettingStrictYAML(raw)
			case ".json":
				ds, derr = spec.GetDistSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if derr != nil {
				return errs.NewFatal(fmt.Sprintf("parse dist setting failed: %s", base))
			}

			name := strings.TrimSpace(ds.Name)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("dist name required: %s", base))
			}

			id := ds.DistID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dist id: %s (config=%s and %s)", id, prev, base))
			}
			if _, ok := p.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("dist id already registered: %s (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dist name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := p.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("dist name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			if _, perr := alias.PrecisionFor(ds.Size(), ds.Epsilon); perr != nil {
				return errs.NewFatal(fmt.Sprintf("precision not buildable: dist_id=%s (config=%s)", id, base))
			}

			entries = append(entries, catalog.Entry{
				DistID:     id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return p.cat.Register(entries...)
}

func (p *Qprep) Freeze() {
	p.cat.Freeze()
}

func (p *Qprep) EntryById(id spec.DistID) (catalog.Entry, bool) {
	return p.cat.GetByID(id)
}

func (p *Qprep) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

// SettingById 取出目錄內的完整分佈設定（凍結後才可用）。
func (p *Qprep) SettingById(id spec.DistID) (*spec.DistSetting, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return p.cat.DistSettingById(id)
}

func (p *Qprep) SettingByName(name string) (*spec.DistSetting, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return p.cat.DistSettingByName(name)
}

func (p *Qprep) IDs() []spec.DistID {
	return p.cat.IDs()
}

func (p *Qprep) All() []catalog.Entry {
	return p.cat.All()
}

func (p *Qprep) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if p.sum != nil {
		return p.sum, nil
	}
	ids := p.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ds, err := p.cat.DistSettingById(id)
		if err != nil {
			return nil, errs.NewFatal("parse dist setting failed")
		}
		mu, err := alias.PrecisionFor(ds.Size(), ds.Epsilon)
		if err != nil {
			return nil, errs.Wrap(err, "summary precision failed")
		}
		s := catalog.Summary{
			DistID:  id,
			Name:    ds.Name,
			Size:    ds.Size(),
			Epsilon: ds.Epsilon,
			Mu:      mu,
		}
		cs = append(cs, s)
	}
	p.sum = cs
	return p.sum, nil
}

// Compile 把單一分佈設定編譯成凍結的 Sampler。
//
// 行為：
//  1. 由 DistSetting 取得機率向量（Probs 直接用、Weights 以總和正規化）。
//  2. Epsilon 為 0 時套用預設精度（與設定檔載入時的預設規則一致）。
//  3. 走 prep.FromLCUProbs 完成離散化、配對與凍結。
//
// 注意：Sampler 是不可變值物件，重複呼叫會重新建表；要常駐快取請使用 BuildRuntime。
func Compile(ds *spec.DistSetting) (*prep.Sampler, error) {
	if ds == nil {
		return nil, errs.NewFatal("dist setting required")
	}
	probs, err := ds.Probabilities()
	if err != nil {
		return nil, err
	}
	if ds.Epsilon == 0 {
		return prep.FromLCUProbsDefault(probs)
	}
	return prep.FromLCUProbs(probs, ds.Epsilon)
}

// CompileQuality 與 Compile 相同，但附上品質報告（尚未 Done，由呼叫端結算）。
//
// 報告裡的預算欄位用實際生效的 epsilon：設定檔留空時是預設值而不是 0。
func CompileQuality(ds *spec.DistSetting) (*prep.Sampler, *stats.QualityReport, error) {
	smp, err := Compile(ds)
	if err != nil {
		return nil, nil, err
	}
	eff := *ds
	if eff.Epsilon == 0 {
		eff.Epsilon = alias.DefaultEpsilon
	}
	rep, err := stats.Evaluate(&eff, smp)
	if err != nil {
		return nil, nil, err
	}
	return smp, rep, nil
}

// CompileById 依據 Catalog 內的分佈 ID 編譯一張 Sampler。
//
// 行為：
//  1. 由 Catalog 取得對應的 DistSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 走編譯管線產出凍結的 Sampler。
func (p *Qprep) CompileById(id spec.DistID) (*prep.Sampler, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return Compile(ds)
}

func (p *Qprep) CompileByName(name string) (*prep.Sampler, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingByName(name)
	if err != nil {
		return nil, err
	}
	return Compile(ds)
}

func (p *Qprep) CompileByJSON(raw []byte) (*prep.Sampler, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return Compile(cfg)
}

func (p *Qprep) CompileByYAML(raw []byte) (*prep.Sampler, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return Compile(cfg)
}

func (p *Qprep) validCfg(cfg *spec.DistSetting) error {
	ent, ok := p.cat.GetByID(cfg.DistID)
	if !ok {
		return errs.NewWarn("dist id not exist")
	}
	ent2, ok := p.cat.GetByName(cfg.Name)
	if !ok {
		return errs.NewWarn("dist name not exist")
	}
	if ent.DistID != ent2.DistID {
		return errs.NewWarn("dist id is not matched dist name")
	}
	return nil
}

// NewBatchCompiler 建立整批編譯器，整個 catalog 的分佈都在批次範圍內。
//
// name 是批次識別名稱（進紀錄與報表）；maxSize 是單表結果數上限，0 表示不設限。
func (p *Qprep) NewBatchCompiler(name string, maxSize int) (*BatchCompiler, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return newBatchCompiler(p, name, maxSize)
}

func (p *Qprep) BuildRuntime() (*PrepRuntime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	p.Freeze()

	ids := p.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no distributions registered")
	}

	rt := &PrepRuntime{
		lab:    p,
		tables: make(map[spec.DistID]*compiledDist, len(ids)),
		ids:    ids,
		done:   make(chan struct{}),
	}
	rt.reason.Store("")

	// 2. 先全編好（fail-fast）
	for _, id := range ids {
		ds, err := p.cat.DistSettingById(id)
		if err != nil {
			return nil, err
		}
		smp, rep, err := CompileQuality(ds)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("compile failed: %s", id))
		}
		rep.Done()
		rt.tables[id] = &compiledDist{
			smp:  smp,
			rep:  rep,
			dump: tabfmt.FromSampler(ds.DistID, ds.Name, ds.Epsilon, smp),
		}
	}
	return rt, nil
}

// DescribeById
//
// 注意只能由Qprep起
// 只提供給Dev模式使用的完整說明，重點是單分佈逐步攤開所以保持可審計性
func (p *Qprep) DescribeById(id spec.DistID) (*Description, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return Describe(ds)
}
