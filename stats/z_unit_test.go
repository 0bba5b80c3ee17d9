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

package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/zintix-labs/weightlab/stats"
	"gopkg.in/yaml.v3"
)

func buildReport(t *testing.T, counts []int) *stats.DrawReport {
	t.Helper()
	r, err := stats.NewDrawReport("coins", "clamp_to_one",
		[]string{"bronze", "silver", "gold"}, []int32{70, 25, 5}, counts)
	if err != nil {
		t.Fatal(err)
	}
	r.Done()
	return r
}

func TestDrawReportMatchingCounts(t *testing.T) {
	r := buildReport(t, []int{7000, 2500, 500})
	s := r.Summary
	if s.Rounds != 10000 || s.TotalWeight != 100 || s.Size != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.ChiSquare != 0 || s.DoF != 2 || math.Abs(s.PValue-1) > 1e-9 {
		t.Fatalf("exact counts should give chi=0 p=1, got chi=%v p=%v", s.ChiSquare, s.PValue)
	}
	for _, it := range r.Items {
		if !it.InCI || it.CI.Lo > it.Expected || it.CI.Hi < it.Expected {
			t.Fatalf("expected value outside CI: %+v", it)
		}
	}
	if s.OutsideCI != 0 || s.MaxAbsDev != 0 {
		t.Fatalf("unexpected deviation: %+v", s)
	}
}

func TestDrawReportDetectsSkew(t *testing.T) {
	r := buildReport(t, []int{5000, 2500, 2500})
	if r.Summary.PValue > 1e-6 {
		t.Fatalf("skewed counts should reject, p=%v", r.Summary.PValue)
	}
	if r.Summary.OutsideCI == 0 {
		t.Fatal("expected items outside CI")
	}
}

func TestDrawReportLengthMismatch(t *testing.T) {
	if _, err := stats.NewDrawReport("x", "", []string{"a"}, []int32{1, 2}, []int{1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDrawReportRenderers(t *testing.T) {
	r := buildReport(t, []int{6900, 2600, 500})

	var jb bytes.Buffer
	if err := r.WriteWith(&jb, stats.JSONRender); err != nil {
		t.Fatal(err)
	}
	var decoded stats.DrawReport
	if err := json.Unmarshal(jb.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Summary.Rounds != 10000 || len(decoded.Items) != 3 {
		t.Fatalf("json lost data: %+v", decoded.Summary)
	}

	var yb bytes.Buffer
	if err := r.WriteWith(&yb, stats.YAMLRender); err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(yb.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(yb.String(), "Table: coins") {
		t.Fatalf("yaml missing table name:\n%s", yb.String())
	}
}

func TestRenderDrainFlowStyle(t *testing.T) {
	d := &stats.DrainReport{Table: "loot", Order: []string{"a", "b"}, Weights: []int32{3, 1}}
	var b bytes.Buffer
	if err := stats.RenderDrain(&b, d, stats.FormatYAML); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "Order: [a, b]") {
		t.Fatalf("expected flow style list:\n%s", b.String())
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]stats.Format{"": stats.FormatText, "JSON": stats.FormatJSON, "yml": stats.FormatYAML} {
		got, err := stats.ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("%q: got %v, %v", in, got, err)
		}
	}
	if _, err := stats.ParseFormat("csv"); err == nil {
		t.Fatal("csv is not supported")
	}
	var b bytes.Buffer
	if err := stats.RenderDrain(&b, &stats.DrainReport{}, stats.FormatText); err == nil {
		t.Fatal("text format must be rejected by the encoder")
	}
}
