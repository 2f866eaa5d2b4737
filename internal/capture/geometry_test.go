package capture

import "testing"

func TestResolveSourceRectFullDisplay(t *testing.T) {
	got := ResolveSourceRect(nil, DisplayMetadata{Width: 1920, Height: 1080})
	want := NewRect(0, 0, 1920, 1080)
	if got != want {
		t.Fatalf("ResolveSourceRect = %v, want %v", got, want)
	}
}

func TestResolveSourceRectRoundsOddUp(t *testing.T) {
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"both odd", NewRect(0, 0, 101, 51), NewRect(0, 0, 102, 52)},
		{"width odd", NewRect(10, 20, 99, 40), NewRect(10, 20, 100, 40)},
		{"already even", NewRect(5, 7, 640, 480), NewRect(5, 7, 640, 480)},
		{"fractional truncates first", NewRect(0, 0, 100.7, 33.2), NewRect(0, 0, 100, 34)},
		{"fractional origin kept", NewRect(1.5, 2.5, 3, 3), NewRect(1.5, 2.5, 4, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			got := ResolveSourceRect(&in, DisplayMetadata{Width: 1920, Height: 1080})
			if got != tt.want {
				t.Fatalf("ResolveSourceRect(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveSourceRectDisplayFailureIsEmpty(t *testing.T) {
	got := ResolveSourceRect(nil, DisplayMetadata{})
	if !got.Empty() {
		t.Fatalf("ResolveSourceRect with zero display = %v, want empty", got)
	}
}

func TestResolveOutputSizeCaptured(t *testing.T) {
	w, h := ResolveOutputSize(ResolutionCaptured, NewRect(0, 0, 1920, 1080))
	if w != 1920 || h != 1080 {
		t.Fatalf("ResolveOutputSize = %dx%d, want 1920x1080", w, h)
	}
}

func TestResolveOutputSizeTarget(t *testing.T) {
	tests := []struct {
		name  string
		res   Resolution
		src   Rect
		wantW int
		wantH int
	}{
		{"720p from 1080p", Resolution720p, NewRect(0, 0, 1920, 1080), 1280, 720},
		{"no upscale", Resolution4320p, NewRect(0, 0, 1920, 1080), 1920, 1080},
		{"480p from 4:3", Resolution480p, NewRect(0, 0, 1024, 768), 640, 480},
		{"odd candidate height decremented", Resolution480p, NewRect(0, 0, 1000, 502), 640, 320},
		{"portrait clamps width", Resolution1080p, NewRect(0, 0, 1080, 1920), 1080, 1920},
		{"odd captured size decremented", ResolutionCaptured, NewRect(0, 0, 101, 51), 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ResolveOutputSize(tt.res, tt.src)
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("ResolveOutputSize(%s, %v) = %dx%d, want %dx%d", tt.res, tt.src, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResolveOutputSizeNeverExceedsSourceAndIsEven(t *testing.T) {
	resolutions := []Resolution{
		ResolutionCaptured, Resolution480p, Resolution720p, Resolution1080p,
		Resolution1440p, Resolution2160p, Resolution4320p,
	}
	for _, res := range resolutions {
		for w := 2; w <= 4000; w += 37 {
			for h := 2; h <= 3000; h += 41 {
				src := NewRect(0, 0, float64(w), float64(h))
				gotW, gotH := ResolveOutputSize(res, src)
				if gotW > w || gotH > h {
					t.Fatalf("ResolveOutputSize(%s, %dx%d) = %dx%d exceeds source", res, w, h, gotW, gotH)
				}
				if gotW%2 != 0 || gotH%2 != 0 {
					t.Fatalf("ResolveOutputSize(%s, %dx%d) = %dx%d not even", res, w, h, gotW, gotH)
				}
			}
		}
	}
}

func TestResolveOutputSizeDeterministic(t *testing.T) {
	src := NewRect(3, 4, 1366, 768)
	w1, h1 := ResolveOutputSize(Resolution720p, src)
	w2, h2 := ResolveOutputSize(Resolution720p, src)
	if w1 != w2 || h1 != h2 {
		t.Fatalf("ResolveOutputSize not deterministic: %dx%d vs %dx%d", w1, h1, w2, h2)
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{"", ResolutionCaptured, false},
		{"captured", ResolutionCaptured, false},
		{"720p", Resolution720p, false},
		{" 1080P ", Resolution1080p, false},
		{"4320p", Resolution4320p, false},
		{"8k", ResolutionCaptured, true},
	}
	for _, tt := range tests {
		got, err := ParseResolution(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseResolution(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseResolution(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
