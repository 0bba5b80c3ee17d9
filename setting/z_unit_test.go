package setting

import (
	"testing"

	"github.com/zintix-labs/weightlab/sdk/sampler"
)

func TestGetTableSettingByYAML(t *testing.T) {
	raw := []byte(`
name: " Coins "
policy: reject
items:
  - name: bronze
    weight: 70
  - name: silver
    weight: 25
  - name: gold
    weight: 5
`)
	ts, err := GetTableSettingByYAML(raw)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Name != "coins" || ts.WeightPolicy() != sampler.RejectOnInvalid || ts.Policy != "reject_on_invalid" {
		t.Fatalf("unexpected setting: %+v", ts)
	}
	pairs := ts.Pairs()
	if len(pairs) != 3 || pairs[2].Value != "gold" || pairs[2].Weight != 5 {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestGetTableSettingByJSONDefaultsToClamp(t *testing.T) {
	ts, err := GetTableSettingByJSON([]byte(`{"name":"loot","items":[{"name":"a","weight":0}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if ts.WeightPolicy() != sampler.ClampToOne {
		t.Fatalf("policy = %v", ts.WeightPolicy())
	}
}

func TestTableSettingValidation(t *testing.T) {
	bad := map[string]string{
		"no name":        `{"items":[{"name":"a","weight":1}]}`,
		"no items":       `{"name":"x","items":[]}`,
		"dup item":       `{"name":"x","items":[{"name":"a","weight":1},{"name":"a","weight":2}]}`,
		"empty item":     `{"name":"x","items":[{"name":" ","weight":1}]}`,
		"reject zero":    `{"name":"x","policy":"reject","items":[{"name":"a","weight":0}]}`,
		"unknown policy": `{"name":"x","policy":"round","items":[{"name":"a","weight":1}]}`,
		"broken json":    `{"name":`,
	}
	for name, raw := range bad {
		if _, err := GetTableSettingByJSON([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
