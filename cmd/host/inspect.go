package main

import (
	"fmt"
	"image"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/permissions"
	"github.com/junsooki/framecap/internal/platform"
)

func listDisplays(cmd *cobra.Command) error {
	resName, _ := cmd.Flags().GetString("resolution")
	res, err := capture.ParseResolution(resName)
	if err != nil {
		return err
	}

	var displays []platform.DisplayInfo
	if backend, _ := cmd.Flags().GetString("backend"); backend == platform.BackendSynthetic {
		s := platform.NewSynthetic(0, 0, nil)
		displays = []platform.DisplayInfo{{Index: 0, Bounds: image.Rect(0, 0, s.Width, s.Height)}}
	} else {
		displays = platform.Displays()
	}
	if len(displays) == 0 {
		return permissions.ErrNoDisplays
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "INDEX\tBOUNDS\tSIZE\tOUTPUT (%s)\n", res)
	for _, d := range displays {
		meta := capture.DisplayMetadata{Width: d.Bounds.Dx(), Height: d.Bounds.Dy()}
		w, h := capture.ResolveOutputSize(res, capture.ResolveSourceRect(nil, meta))
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%dx%d\n", d.Index, d.Bounds, meta.Width, meta.Height, w, h)
	}
	return tw.Flush()
}

func checkPermissions(request bool) error {
	fmt.Printf("capture supported:  %v\n", permissions.IsSupported())
	fmt.Printf("screen recording:   %v\n", permissions.HasScreenRecording())
	if err := permissions.Check(request); err != nil {
		return err
	}
	fmt.Println("ready to capture")
	return nil
}
