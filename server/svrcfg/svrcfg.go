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

package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/qprep"
	"github.com/zintix-labs/qprep/errs"
	"github.com/zintix-labs/qprep/server/logger"
)

// Mode 決定對外掛載哪些路由：dev panel 只在 ModeDev 掛載。
type Mode uint8

const (
	ModeDev Mode = iota
	ModeProd
)

type SvrCfg struct {
	Log        *slog.Logger
	Mode       Mode
	AdHocLimit int // 臨時分佈的結果數上限（L）
	Qprep      *qprep.Qprep
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}

	// 256 <= sc.AdHocLimit <= 65536
	// for 資源管理：過大的臨時分佈會在編譯期燒 CPU
	sc.AdHocLimit = max(256, sc.AdHocLimit)
	sc.AdHocLimit = min(65536, sc.AdHocLimit)
	if sc.Qprep == nil {
		return errs.NewFatal("qprep is required")
	}
	return nil
}
