package snapshot

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/zintix-labs/weightlab/sdk/core"
	"github.com/zintix-labs/weightlab/sdk/sampler"
)

func newList(t *testing.T, seed int64) *sampler.WeightedList[string] {
	t.Helper()
	l, err := sampler.NewFrom(core.New(core.Default().New(seed)), sampler.RejectOnInvalid,
		[]sampler.Item[string]{{Value: "a", Weight: 3}, {Value: "b", Weight: 1}, {Value: "a", Weight: 6}})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestRoundTripReproducesDraws(t *testing.T) {
	l := newList(t, 5)
	l.Next()

	snap, err := Capture("demo", l, true)
	if err != nil {
		t.Fatal(err)
	}
	text, err := EncodeText(snap)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeText[string](text)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := back.Build(core.New(core.Default().New(999)))
	if err != nil {
		t.Fatal(err)
	}

	if back.Name != "demo" || restored.Policy() != sampler.RejectOnInvalid {
		t.Fatalf("metadata lost: %+v", back)
	}
	if !slices.Equal(l.Pairs(), restored.Pairs()) {
		t.Fatalf("pairs mismatch: %v vs %v", l.Pairs(), restored.Pairs())
	}
	for i := range 200 {
		if a, b := l.NextIndex(), restored.NextIndex(); a != b {
			t.Fatalf("draw %d diverged: %d vs %d", i, a, b)
		}
	}
}

func TestCaptureWithoutPRNG(t *testing.T) {
	snap, err := Capture("x", newList(t, 1), false)
	if err != nil {
		t.Fatal(err)
	}
	if snap.PRNG != nil {
		t.Fatal("expected no prng state")
	}
	l, err := snap.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	if l.TotalWeight() != 10 {
		t.Fatalf("total = %d", l.TotalWeight())
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	if _, err := DecodeBlobFrame([]byte{0x80}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("bad varint: %v", err)
	}
	if _, err := DecodeBlobFrame([]byte{5, 1, 2}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("truncated: %v", err)
	}
	if _, err := Decode[string](EncodeBlobFrame([]byte("not zstd"))); !errors.Is(err, ErrCorrupt) {
		t.Errorf("not zstd: %v", err)
	}
	if _, err := DecodeText[string]("***"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("bad base64: %v", err)
	}

	z, _ := EncodeZstd([]byte(`{"v":7,"name":"x","items":[]}`))
	if _, err := Decode[string](EncodeBlobFrame(z)); !errors.Is(err, ErrVersion) {
		t.Errorf("version: %v", err)
	}
}

func TestBuildRejectsInvalidWeights(t *testing.T) {
	snap := &Table[string]{Version: Version, Policy: sampler.RejectOnInvalid,
		Items: []sampler.Item[string]{{Value: "a", Weight: 0}}}
	if _, err := snap.Build(nil); !errors.Is(err, sampler.ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}
}

func TestBlobFrameStream(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBlobFrame(&buf, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	got, err := ReadBlobFrame(&buf, 16)
	if err != nil || string(got) != "hello" {
		t.Fatalf("got %q, %v", got, err)
	}

	buf.Reset()
	_ = WriteBlobFrame(&buf, make([]byte, 32))
	if _, err := ReadBlobFrame(&buf, 16); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestWriteReadMatchesEncode(t *testing.T) {
	snap, err := Capture("demo", newList(t, 8), true)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatal(err)
	}
	frame, err := Encode(snap)
	if err != nil {
		t.Fatal(err)
	}
	// zstd 輸出是決定性的，兩條路徑產生同一份 frame
	if !bytes.Equal(buf.Bytes(), frame) {
		t.Fatal("Write and Encode produced different frames")
	}
	back, err := Read[string](&buf, MaxFrameBytes)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "demo" || !slices.Equal(back.Items, snap.Items) || !bytes.Equal(back.PRNG, snap.PRNG) {
		t.Fatalf("read mismatch: %+v", back)
	}

	if _, err := Read[string](bytes.NewReader(frame[:len(frame)-3]), MaxFrameBytes); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("truncated frame: expected ErrCorrupt, got %v", err)
	}
	if _, err := Read[string](bytes.NewReader(nil), MaxFrameBytes); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("empty input: expected ErrCorrupt, got %v", err)
	}
}
