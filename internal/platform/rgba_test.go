package platform

import (
	"bytes"
	"image"
	"testing"
)

func filledRGBA(r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(r)
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	return img
}

func TestRGBAFrameFullBufferPacked(t *testing.T) {
	img := filledRGBA(image.Rect(0, 0, 4, 3))
	f := NewRGBAFrame(img)
	if f.Width() != 4 || f.Height() != 3 {
		t.Fatalf("size = %dx%d, want 4x3", f.Width(), f.Height())
	}
	buf, err := f.FullBuffer()
	if err != nil {
		t.Fatalf("FullBuffer: %v", err)
	}
	if !bytes.Equal(buf, img.Pix) {
		t.Fatal("FullBuffer differs from image pixels")
	}
}

func TestRGBAFrameFullBufferSubImage(t *testing.T) {
	parent := filledRGBA(image.Rect(0, 0, 8, 8))
	sub := parent.SubImage(image.Rect(2, 2, 6, 5)).(*image.RGBA)
	f := NewRGBAFrame(sub)

	buf, err := f.FullBuffer()
	if err != nil {
		t.Fatalf("FullBuffer: %v", err)
	}
	if len(buf) != 4*3*4 {
		t.Fatalf("len = %d, want %d", len(buf), 4*3*4)
	}
	off := parent.PixOffset(2, 2)
	if !bytes.Equal(buf[:4], parent.Pix[off:off+4]) {
		t.Fatal("first pixel is not the sub-image origin")
	}
	off = parent.PixOffset(2, 3)
	if !bytes.Equal(buf[16:20], parent.Pix[off:off+4]) {
		t.Fatal("second row does not follow parent stride")
	}
}

func TestRGBAFrameCroppedBuffer(t *testing.T) {
	img := filledRGBA(image.Rect(0, 0, 10, 10))
	f := NewRGBAFrame(img)

	buf, err := f.CroppedBuffer(3, 4, 5, 6)
	if err != nil {
		t.Fatalf("CroppedBuffer: %v", err)
	}
	if len(buf) != 2*2*4 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	off := img.PixOffset(3, 5)
	if !bytes.Equal(buf[8:12], img.Pix[off:off+4]) {
		t.Fatal("crop row 1 mismatch")
	}
}

func TestRGBAFrameCroppedBufferOutOfBounds(t *testing.T) {
	f := NewRGBAFrame(filledRGBA(image.Rect(0, 0, 10, 10)))
	for _, c := range [][4]int{
		{-1, 0, 2, 2},
		{0, 0, 11, 2},
		{5, 5, 5, 6},
		{0, 8, 4, 12},
	} {
		if _, err := f.CroppedBuffer(c[0], c[1], c[2], c[3]); err == nil {
			t.Fatalf("CroppedBuffer%v: expected error", c)
		}
	}
}
