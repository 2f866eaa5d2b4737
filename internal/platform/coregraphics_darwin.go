//go:build darwin && cgo

package platform

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <dlfcn.h>
#include <stdlib.h>

typedef struct {
    void*  data;
    size_t size;
    int    width;
    int    height;
    size_t bytesPerRow;
} FrameData;

// CGWindowListCreateImage is missing from the macOS 15 SDK headers but the
// symbol is still exported by the CoreGraphics dylib.
typedef CGImageRef (*CGWindowListCreateImageFunc)(
    CGRect screenBounds,
    uint32_t listOption,
    uint32_t windowID,
    uint32_t imageOption
);

static CGWindowListCreateImageFunc lookupWindowListCreateImage(void) {
    static CGWindowListCreateImageFunc fn = NULL;
    if (!fn) {
        fn = (CGWindowListCreateImageFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImage");
    }
    return fn;
}

static CGDirectDisplayID displayAt(int index, int* ok) {
    CGDirectDisplayID displays[16];
    uint32_t count = 0;
    *ok = 0;
    if (index == 0) {
        *ok = 1;
        return CGMainDisplayID();
    }
    CGGetActiveDisplayList(16, displays, &count);
    if (index < 0 || (uint32_t)index >= count) {
        return 0;
    }
    *ok = 1;
    return displays[index];
}

// CGDisplayPixelsWide/High report points; the current mode carries the
// backing pixel size that CGWindowListCreateImage produces.
static void displayPixelSize(CGDirectDisplayID id, int* w, int* h) {
    CGDisplayModeRef mode = CGDisplayCopyDisplayMode(id);
    if (!mode) {
        *w = (int)CGDisplayPixelsWide(id);
        *h = (int)CGDisplayPixelsHigh(id);
        return;
    }
    *w = (int)CGDisplayModeGetPixelWidth(mode);
    *h = (int)CGDisplayModeGetPixelHeight(mode);
    CGDisplayModeRelease(mode);
}

static FrameData grabDisplay(CGDirectDisplayID displayID) {
    FrameData result = {0};

    CGWindowListCreateImageFunc fn = lookupWindowListCreateImage();
    if (!fn) {
        return result;
    }

    // kCGWindowListOptionOnScreenOnly = 1, kCGNullWindowID = 0, kCGWindowImageDefault = 0
    CGImageRef image = fn(CGDisplayBounds(displayID), 1, 0, 0);
    if (!image) {
        return result;
    }

    result.width  = (int)CGImageGetWidth(image);
    result.height = (int)CGImageGetHeight(image);
    result.bytesPerRow = result.width * 4;
    result.size        = result.bytesPerRow * result.height;
    result.data        = malloc(result.size);
    if (!result.data) {
        CGImageRelease(image);
        result.size = 0;
        return result;
    }

    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(
        result.data, result.width, result.height, 8,
        result.bytesPerRow, cs, kCGImageAlphaPremultipliedLast);
    CGContextDrawImage(ctx, CGRectMake(0, 0, result.width, result.height), image);
    CGContextRelease(ctx);
    CGColorSpaceRelease(cs);
    CGImageRelease(image);

    return result;
}

static void releaseFrameData(void* data) {
    free(data);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/logging"
)

// CoreGraphics captures a display through CGWindowListCreateImage. Both the
// grabbed frames and PrimaryDisplay are in backing pixels, so a Retina
// display reports its native resolution rather than its point size.
type CoreGraphics struct {
	Display int
	Logger  *slog.Logger
}

func newCoreGraphics(display int, logger *slog.Logger) (capture.Platform, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoreGraphics{Display: display, Logger: logging.Component(logger, "platform").With("backend", BackendCoreGraphics)}, nil
}

func (c *CoreGraphics) displayID(index int) (C.CGDirectDisplayID, error) {
	var ok C.int
	id := C.displayAt(C.int(index), &ok)
	if ok == 0 {
		return 0, fmt.Errorf("display index %d out of range", index)
	}
	return id, nil
}

func (c *CoreGraphics) PrimaryDisplay() (capture.DisplayMetadata, error) {
	id, err := c.displayID(c.Display)
	if err != nil {
		return capture.DisplayMetadata{}, err
	}
	var w, h C.int
	C.displayPixelSize(id, &w, &h)
	return capture.DisplayMetadata{Width: int(w), Height: int(h)}, nil
}

func (c *CoreGraphics) StartStream(cfg capture.StreamConfig, onFrame capture.FrameHandler, onClosed capture.ClosedHandler) (capture.StreamHandle, error) {
	id, err := c.displayID(c.Display)
	if err != nil {
		return nil, err
	}
	if C.lookupWindowListCreateImage() == nil {
		return nil, errors.New("CGWindowListCreateImage not available")
	}

	grab := func() (*image.RGBA, error) {
		fd := C.grabDisplay(id)
		if fd.data == nil {
			return nil, errors.New("CGWindowListCreateImage returned no image")
		}
		defer C.releaseFrameData(fd.data)

		w, h := int(fd.width), int(fd.height)
		pix := make([]byte, int(fd.size))
		copy(pix, unsafe.Slice((*byte)(fd.data), len(pix)))
		return &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}, nil
	}
	c.Logger.Debug("starting stream", "display", c.Display, "fps", cfg.FrameRate)
	return startTickerStream(grab, cfg.FrameRate, onFrame, onClosed, c.Logger), nil
}
