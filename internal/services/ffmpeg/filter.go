package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"renderforge/internal/compose"
)

// renderFilter turns an ordered operation list into filter_complex text.
func renderFilter(ops []compose.Op) string {
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		var b strings.Builder
		for _, src := range op.Sources {
			b.WriteString(streamRef(src))
		}
		switch op.Kind {
		case compose.KindScale:
			fmt.Fprintf(&b, "scale=%d:%d", op.Width, op.Height)
		case compose.KindOverlay:
			b.WriteString("overlay=0:0")
		case compose.KindGain:
			b.WriteString("volume=" + formatVolume(op.Volume))
		case compose.KindMix:
			fmt.Fprintf(&b, "amix=inputs=%d:dropout_transition=%d", len(op.Sources), op.DropoutTransition)
		}
		b.WriteString("[" + op.Output + "]")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ";")
}

// streamRef brackets a stream for filter graph text.
func streamRef(s compose.Stream) string {
	if s.Label != "" {
		return "[" + s.Label + "]"
	}
	return "[" + s.Pad + "]"
}

// mapArg renders a stream for -map. Filter output labels keep their
// brackets; demuxer pads are passed bare.
func mapArg(s compose.Stream) string {
	if s.Label != "" {
		return "[" + s.Label + "]"
	}
	return s.Pad
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
