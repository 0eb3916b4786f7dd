package main

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

func formatFloat(f float32, prec int) string {
	s := strconv.FormatFloat(float64(f), 'f', prec, 32)
	// Avoid printing "-0.0000".
	if strings.Trim(s, "-0.") == "" {
		s = strings.TrimPrefix(s, "-")
	}
	return s
}

func formatVec3(v mgl32.Vec3, prec int) string {
	return "(" + formatFloat(v[0], prec) + ", " + formatFloat(v[1], prec) + ", " + formatFloat(v[2], prec) + ")"
}

// formatMat4 prints m row by row with aligned columns.
func formatMat4(m mgl32.Mat4, prec int, indent string) string {
	var cells [4][4]string
	width := 0
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			cells[r][c] = formatFloat(m.At(r, c), prec)
			width = max(width, len(cells[r][c]))
		}
	}

	var b strings.Builder
	for r := 0; r < 4; r++ {
		b.WriteString(indent)
		for c := 0; c < 4; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.Repeat(" ", width-len(cells[r][c])))
			b.WriteString(cells[r][c])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
