package setting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zintix-labs/weightlab/errs"
	"github.com/zintix-labs/weightlab/sdk/sampler"
	"gopkg.in/yaml.v3"
)

// TableSetting 是一張加權表的設定檔內容。
type TableSetting struct {
	Name   string        `yaml:"name"   json:"name"`
	Desc   string        `yaml:"desc"   json:"desc,omitempty"`
	Policy string        `yaml:"policy" json:"policy,omitempty"`
	Items  []ItemSetting `yaml:"items"  json:"items"`

	policy sampler.WeightPolicy
}

// ItemSetting 是表中的單一項目。Weight 允許 <= 0，交由 Policy 決定夾到 1 或拒絕。
type ItemSetting struct {
	Name   string `yaml:"name"   json:"name"`
	Weight int32  `yaml:"weight" json:"weight"`
}

// GetTableSettingByYAML
// 會讀取 YAML 設定、正規化並執行基本檢查後回傳
func GetTableSettingByYAML(data []byte) (*TableSetting, error) {
	ts := &TableSetting{}
	if err := yaml.Unmarshal(data, ts); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}
	if err := ts.init(); err != nil {
		return nil, errs.Wrap(err, "table setting initialized err")
	}
	return ts, nil
}

// GetTableSettingByJSON
// 會讀取 Json 設定、正規化並執行基本檢查後回傳
func GetTableSettingByJSON(data []byte) (*TableSetting, error) {
	ts := &TableSetting{}
	if err := json.Unmarshal(data, ts); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}
	if err := ts.init(); err != nil {
		return nil, errs.Wrap(err, "table setting initialized err")
	}
	return ts, nil
}

// WeightPolicy 回傳解析後的策略（init 之後才有效）。
func (ts *TableSetting) WeightPolicy() sampler.WeightPolicy {
	return ts.policy
}

// Pairs 轉成 sampler 的批次建構輸入。
func (ts *TableSetting) Pairs() []sampler.Item[string] {
	out := make([]sampler.Item[string], len(ts.Items))
	for i, it := range ts.Items {
		out[i] = sampler.Item[string]{Value: it.Name, Weight: it.Weight}
	}
	return out
}

func (ts *TableSetting) init() error {
	ts.Name = strings.ToLower(strings.TrimSpace(ts.Name))
	for i := range ts.Items {
		ts.Items[i].Name = strings.TrimSpace(ts.Items[i].Name)
	}
	p, err := sampler.ParseWeightPolicy(ts.Policy)
	if err != nil {
		return errs.NewFatal(fmt.Sprintf("table: %s err:%v", ts.Name, err))
	}
	ts.policy = p
	ts.Policy = p.String()
	return ts.valid()
}

// valid 執行最基本的設定檔檢查。
func (ts *TableSetting) valid() error {
	if ts.Name == "" {
		return errs.NewFatal("table name required")
	}
	if len(ts.Items) == 0 {
		return errs.NewFatal(fmt.Sprintf("table: %s err:empty items", ts.Name))
	}
	seen := make(map[string]struct{}, len(ts.Items))
	for i, it := range ts.Items {
		if it.Name == "" {
			return errs.NewFatal(fmt.Sprintf("table: %s err:items[%d] name required", ts.Name, i))
		}
		if _, ok := seen[it.Name]; ok {
			return errs.NewFatal(fmt.Sprintf("table: %s err:duplicate item %q", ts.Name, it.Name))
		}
		seen[it.Name] = struct{}{}
		if ts.policy == sampler.RejectOnInvalid && it.Weight <= 0 {
			return errs.NewFatal(fmt.Sprintf("table: %s err:item %q weight %d must be > 0", ts.Name, it.Name, it.Weight))
		}
	}
	return nil
}
