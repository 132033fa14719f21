// Copyright 2026 Zintix Labs
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

package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/zintix-labs/qprep/server/netsvr/middleware"
)

// ============================================================
// ** Compression 協商 **
// ============================================================

var compressPayload = strings.Repeat(`{"alt":[1,0,0],"keep":[384,512,128]}`, 64)

func payloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, compressPayload)
	})
}

func doCompressed(t *testing.T, h http.Handler, method, acceptEncoding string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, "/v1/catalog", nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	middleware.Compression(h).ServeHTTP(rec, req)
	return rec
}

func TestCompressionNegotiatesZstd(t *testing.T) {
	rec := doCompressed(t, payloadHandler(), http.MethodGet, "zstd, gzip")

	if enc := rec.Header().Get("Content-Encoding"); enc != "zstd" {
		t.Fatalf("Content-Encoding = %q, want zstd", enc)
	}
	if vary := rec.Header().Get("Vary"); vary != "Accept-Encoding" {
		t.Fatalf("Vary = %q, want Accept-Encoding", vary)
	}

	zr, err := zstd.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("zstd decode: %v", err)
	}
	if string(body) != compressPayload {
		t.Fatalf("payload corrupted through zstd: got %d bytes, want %d", len(body), len(compressPayload))
	}
}

func TestCompressionNegotiatesGzip(t *testing.T) {
	rec := doCompressed(t, payloadHandler(), http.MethodGet, "gzip")

	if enc := rec.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", enc)
	}

	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gr.Close()
	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("gzip decode: %v", err)
	}
	if string(body) != compressPayload {
		t.Fatalf("payload corrupted through gzip: got %d bytes, want %d", len(body), len(compressPayload))
	}
}

func TestCompressionIdentityPassthrough(t *testing.T) {
	rec := doCompressed(t, payloadHandler(), http.MethodGet, "")

	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Fatalf("Content-Encoding = %q, want none", enc)
	}
	if rec.Body.String() != compressPayload {
		t.Fatalf("identity payload altered")
	}
}

// 204 回應不得殘留壓縮 footer 或 Content-Encoding。
func TestCompressionNoContentStaysEmpty(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := doCompressed(t, h, http.MethodGet, "zstd")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d, want 204", rec.Code)
	}
	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Fatalf("Content-Encoding = %q on 204, want none", enc)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("204 body not empty: %d bytes", rec.Body.Len())
	}
}

func TestCompressionSkipsHead(t *testing.T) {
	rec := doCompressed(t, payloadHandler(), http.MethodHead, "zstd")

	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Fatalf("Content-Encoding = %q on HEAD, want none", enc)
	}
}
