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

package demo

import (
	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/catalog"
	"github.com/zintix-labs/qprep/demo/demo_configs"
	_ "github.com/zintix-labs/qprep/demo/demo_notes" // fixed 附註的輸出轉換
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/server/logger"
	"github.com/zintix-labs/qprep/server/svrcfg"
)

func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

func NewServerConfig() (*svrcfg.SvrCfg, error) {
	lab, err := qprep.NewAuto(qprep.Configs(demo_configs.FS))
	if err != nil {
		return nil, errs.NewFatal("new qprep failed:" + err.Error())
	}
	scfg := &svrcfg.SvrCfg{
		Log:   logger.NewDefaultAsyncLogger(logger.ModeDev),
		Mode:  svrcfg.ModeDev,
		Qprep: lab,
	}
	return scfg, nil
}

func NewQprep() (*qprep.Qprep, error) {
	return qprep.NewAuto(qprep.Configs(demo_configs.FS))
}
