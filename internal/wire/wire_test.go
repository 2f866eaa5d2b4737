package wire

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/junsooki/framecap/internal/capture"
)

func testFrame(seq uint64, w, h int) capture.Frame {
	data := make([]byte, w*h*capture.BytesPerPixel)
	for i := range data {
		data[i] = byte(int(seq) + i*3)
	}
	return capture.Frame{
		Seq:       seq,
		Format:    capture.PixelFormatRGBA,
		Width:     w,
		Height:    h,
		Data:      data,
		Timestamp: time.Duration(seq) * time.Millisecond,
	}
}

func mustChunk(t *testing.T, f capture.Frame, maxPayload int) [][]byte {
	t.Helper()
	dgs, err := Chunk(f, maxPayload)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	return dgs
}

func TestChunkSizes(t *testing.T) {
	f := testFrame(1, 10, 1) // 40 bytes
	dgs := mustChunk(t, f, 16)
	if len(dgs) != 3 {
		t.Fatalf("chunks = %d, want 3", len(dgs))
	}
	// ceil(40/3) = 14, last gets 12.
	for i, want := range []int{14, 14, 12} {
		if got := len(dgs[i]) - HeaderSize; got != want {
			t.Fatalf("chunk %d payload = %d, want %d", i, got, want)
		}
	}
}

func TestReassembleInOrder(t *testing.T) {
	f := testFrame(7, 33, 17)
	var r Reassembler
	dgs := mustChunk(t, f, 1000)

	for i, dg := range dgs {
		got, ok, err := r.Add(dg)
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
		if ok != (i == len(dgs)-1) {
			t.Fatalf("Add %d complete = %v", i, ok)
		}
		if ok {
			if got.Seq != 7 || got.Width != 33 || got.Height != 17 || got.Timestamp != f.Timestamp {
				t.Fatalf("frame = seq %d %dx%d ts %v", got.Seq, got.Width, got.Height, got.Timestamp)
			}
			if !bytes.Equal(got.Data, f.Data) {
				t.Fatal("reassembled data differs")
			}
		}
	}
}

func TestReassembleOutOfOrderWithDuplicates(t *testing.T) {
	f := testFrame(3, 20, 20)
	dgs := mustChunk(t, f, 100)
	rng := rand.New(rand.NewPCG(1, 2))
	rng.Shuffle(len(dgs), func(i, j int) { dgs[i], dgs[j] = dgs[j], dgs[i] })
	dgs = append(dgs[:1:1], dgs...) // first chunk twice

	var r Reassembler
	var done int
	for _, dg := range dgs {
		got, ok, err := r.Add(dg)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if ok {
			done++
			if !bytes.Equal(got.Data, f.Data) {
				t.Fatal("reassembled data differs")
			}
		}
	}
	if done != 1 {
		t.Fatalf("completed %d times, want 1", done)
	}
}

func TestReassembleNewerFrameAbandonsPartial(t *testing.T) {
	old := mustChunk(t, testFrame(1, 8, 8), 64)
	next := mustChunk(t, testFrame(2, 8, 8), 64)

	var r Reassembler
	if _, ok, _ := r.Add(old[0]); ok {
		t.Fatal("partial frame reported complete")
	}
	var got capture.Frame
	var ok bool
	for _, dg := range next {
		var err error
		got, ok, err = r.Add(dg)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if !ok || got.Seq != 2 {
		t.Fatalf("complete = %v seq = %d, want true 2", ok, got.Seq)
	}
	if r.Abandoned() != 1 {
		t.Fatalf("Abandoned = %d, want 1", r.Abandoned())
	}

	// Late chunks of frame 1 are ignored.
	for _, dg := range old[1:] {
		if _, ok, err := r.Add(dg); ok || err != nil {
			t.Fatalf("stale chunk: ok %v err %v", ok, err)
		}
	}
}

func TestReassembleRejectsMalformed(t *testing.T) {
	good := mustChunk(t, testFrame(5, 4, 4), 32)[0]

	badMagic := bytes.Clone(good)
	badMagic[0] = 0

	badVersion := bytes.Clone(good)
	badVersion[2] = 9

	badIndex := bytes.Clone(good)
	badIndex[12], badIndex[13] = 0xff, 0xff

	badLen := append(bytes.Clone(good), 0)

	for name, dg := range map[string][]byte{
		"short":       good[:HeaderSize-1],
		"bad magic":   badMagic,
		"bad version": badVersion,
		"bad index":   badIndex,
		"bad length":  badLen,
	} {
		var r Reassembler
		if _, _, err := r.Add(dg); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: err = %v, want ErrMalformed", name, err)
		}
	}
}

func TestReassembleRejectsOversizedFrame(t *testing.T) {
	dg := mustChunk(t, testFrame(1, 2, 2), 64)[0]
	// 65535x65535 is far above MaxFrameBytes.
	dg[16], dg[17], dg[18], dg[19] = 0, 0, 0xff, 0xff
	dg[20], dg[21], dg[22], dg[23] = 0, 0, 0xff, 0xff

	var r Reassembler
	if _, _, err := r.Add(dg); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestChunkRejectsBadInput(t *testing.T) {
	f := testFrame(1, 4, 4)
	if _, err := Chunk(f, 0); err == nil {
		t.Fatal("expected error for zero max payload")
	}
	f.Data = f.Data[:10]
	if _, err := Chunk(f, 64); err == nil {
		t.Fatal("expected error for short data")
	}
	if _, err := Chunk(testFrame(1, 300, 300), 1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge for too many chunks", err)
	}
}
