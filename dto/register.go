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

package dto

import (
	"bytes"
	"reflect"

	"gopkg.in/yaml.v3"
)

var fixedRenders = map[string]func(any) any{}

// RegisterFixedRender 註冊 fixed 欄位的輸出轉換函數。
// key 為 fixed 區塊內的欄位名，T 為該欄位值的 型別指標 (不傳指標會panic)
//
// 轉換規則：
//   - 值已是 T（編譯期內建的設定直接存型別指標）：原樣輸出。
//   - 值為設定檔載入的原始 map：以嚴格模式解碼成 T；解不動就原樣輸出。
func RegisterFixedRender[T any](key string) {
	// 判斷送進來的T是否是指標型別
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Ptr {
		panic("RegisterFixedRender 必須傳入 指標型別")
	}

	// 註冊fixed型別輸出轉換
	fixedRenders[key] = func(v any) any {
		if val, ok := v.(T); ok {
			return val
		}
		bs, err := yaml.Marshal(v)
		if err != nil {
			return v
		}
		out := reflect.New(rt.Elem()).Interface()
		dec := yaml.NewDecoder(bytes.NewReader(bs))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil {
			return v
		}
		return out
	}
}

// RenderFixed 逐一套用已註冊的轉換後輸出；未註冊的欄位原樣輸出。
// 空 map 輸出 nil，配合 omitempty 不佔回應篇幅。
func RenderFixed(fixed map[string]any) map[string]any {
	if len(fixed) == 0 {
		return nil
	}
	out := make(map[string]any, len(fixed))
	for k, v := range fixed {
		out[k] = renderFixedValue(k, v)
	}
	return out
}

func renderFixedValue(key string, v any) any {
	if fn, ok := fixedRenders[key]; ok {
		return fn(v)
	}
	return v
}
