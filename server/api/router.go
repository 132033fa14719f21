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

package api

import (
	"log/slog"

	"github.com/zintix-labs/qprep/server/api/dev"
	"github.com/zintix-labs/qprep/server/api/index"
	v1 "github.com/zintix-labs/qprep/server/api/v1"
	"github.com/zintix-labs/qprep/server/netsvr"
	"github.com/zintix-labs/qprep/server/netsvr/middleware"
	"github.com/zintix-labs/qprep/server/svrcfg"
)

// RegisterRoutes 註冊
//
// v1 handler 的組裝可能失敗（例如 runtime 建表失敗），錯誤會一路傳回給呼叫端。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerIndex(svr)                // 2. 註冊主頁
	if sCfg.Mode == svrcfg.ModeDev {
		dev.Register(svr, sCfg) // 3. 開發者工具頁（只在 dev mode 掛載）
	}
	return registerV1API(svr, sCfg) // 4. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover)
	svr.Use(middleware.Compression)
	svr.Use(middleware.Metrics)
}

// 註冊主頁
func registerIndex(svr netsvr.NetSvr) {
	svr.Get("/", index.IndexHandlerFn)
	svr.Get("/metrics", middleware.MetricsHandler().ServeHTTP)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	c, err := v1.NewCompileHandler(sCfg)
	if err != nil {
		return err
	}
	ch, err := v1.NewCatalogHandler(sCfg.Qprep)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/compile", c.Compile)
		vOne.Get("/decompose", c.Decompose)
		vOne.Get("/catalog", ch.Catalog)
		vOne.Get("/catalog/{id}", ch.CatalogById)
		vOne.Get("/layout", v1.Layout)
		vOne.Get("/plan", v1.Plan)

		vOne.Post("/compile", c.Compile)
		vOne.Post("/decompose", c.Decompose)
		vOne.Post("/quality", v1.Quality)
	})
	return nil
}
