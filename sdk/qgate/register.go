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

// Package qgate 定義可逆運算的描述層 (Descriptor Layer)。
//
// 本檔案 (register.go) 定義了具名暫存器描述子。
//
// 目的：
//   - 讓上游（取樣器分解、電路組裝端）以「名稱 + 位寬」描述暫存器綁定，
//     不涉及任何實際配置或執行。
//   - 位寬驗證只需比對整數，測試可以完全不依賴執行後端。
package qgate

import "fmt"

// Register 描述一束具名的量子線 (wire bundle)：名稱與位寬。
// 它只是描述子；實際的暫存器配置由執行後端負責。
type Register struct {
	Name  string
	Width int
}

// String 以 name[width] 格式呈現，供操作列表與記錄輸出使用。
func (r Register) String() string {
	return fmt.Sprintf("%s[%d]", r.Name, r.Width)
}
