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

package recorder

import "testing"

func TestRecordAndMerge(t *testing.T) {
	names := []string{"a", "b"}
	weights := []int32{1, 3}
	r1, _ := NewDrawRecorder("t", "clamp_to_one", names, weights)
	r2, _ := NewDrawRecorder("t", "clamp_to_one", names, weights)
	for range 10 {
		r1.Record(0)
	}
	for range 30 {
		r2.Record(1)
	}
	r2.Record(-1)

	m, err := MergeDrawRecorder([]*DrawRecorder{r1, r2})
	if err != nil {
		t.Fatal(err)
	}
	if m.Counts[0] != 10 || m.Counts[1] != 30 || m.Misses != 1 || m.Rounds() != 41 {
		t.Fatalf("unexpected merge: %+v", m)
	}
	rep, err := m.Done()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Rounds != 40 || rep.Items[1].Expected != 0.75 {
		t.Fatalf("unexpected report: %+v", rep.Summary)
	}
}

func TestMergeRejectsDifferentLayout(t *testing.T) {
	r1, _ := NewDrawRecorder("t", "", []string{"a"}, []int32{1})
	r2, _ := NewDrawRecorder("t", "", []string{"a"}, []int32{2})
	if _, err := MergeDrawRecorder([]*DrawRecorder{r1, r2}); err == nil {
		t.Fatal("expected layout error")
	}
	if _, err := MergeDrawRecorder(nil); err == nil {
		t.Fatal("expected empty error")
	}
	if _, err := NewDrawRecorder("t", "", []string{"a"}, nil); err == nil {
		t.Fatal("expected length error")
	}
}
