package spec

import (
	"bytes"

	"github.com/zintix-labs/qprep/errs"
	"gopkg.in/yaml.v3"
)

// DecodeFixed 會把 ds.Fixed 由 map[string]any 轉成你要的型別 T。
// T 應該是 struct，例如下游成本註記工具自己定義的 MyCostFixed。
func DecodeFixed[T any](ds *DistSetting, out *T) error {
	// 先把 map[string]any -> YAML bytes
	bs, err := yaml.Marshal(ds.Fixed)
	if err != nil {
		return errs.Wrap(err, "spec.fixed_decoder : marshal failed")
	}
	// 再把 YAML bytes -> 自定義的型別
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true) // 嚴格檢查：多寫/拼錯欄位就報錯
	if err = dec.Decode(out); err != nil {
		return errs.Wrap(err, "spec.fixed_decoder : decode failed")
	}
	return nil
}

// DecodeStrict 以嚴格模式把 YAML bytes 解碼成 T；未知欄位即報錯。
func DecodeStrict[T any](data []byte) (*T, error) {
	out := new(T)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return nil, errs.Wrap(err, "spec.fixed_decoder : strict decode failed")
	}
	return out, nil
}
