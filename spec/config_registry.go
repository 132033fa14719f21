package spec

import (
	"encoding/json"

	"github.com/zintix-labs/qprep/errs"
	"gopkg.in/yaml.v3"
)

// GetDistSettingByYAML
// 會讀取 YAML 設定、填入預設值並執行基本檢查後回傳。
func GetDistSettingByYAML(data []byte) (*DistSetting, error) {
	ds := &DistSetting{}
	if err := yaml.Unmarshal(data, ds); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := ds.init(); err != nil {
		return nil, errs.Wrap(err, "dist setting initialized err")
	}

	return ds, nil
}

// GetDistSettingByJSON
// 會讀取 Json 設定、填入預設值並執行基本檢查後回傳。
func GetDistSettingByJSON(data []byte) (*DistSetting, error) {
	ds := &DistSetting{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	// 設定檔初始化
	if err := ds.init(); err != nil {
		return nil, errs.Wrap(err, "dist setting initialized err")
	}

	return ds, nil
}

// GetDistSettingStrictYAML 與 GetDistSettingByYAML 相同，但啟用嚴格欄位檢查：
// 設定檔出現未知欄位（多寫/拼錯）即報錯。建議 catalog 載入時使用。
func GetDistSettingStrictYAML(data []byte) (*DistSetting, error) {
	ds, err := DecodeStrict[DistSetting](data)
	if err != nil {
		return nil, err
	}
	if err := ds.init(); err != nil {
		return nil, errs.Wrap(err, "dist setting initialized err")
	}
	return ds, nil
}
