package link

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glowlab/glowsync/internal/lights"
)

// DefaultDecay is the per-channel decay hint sent at handshake when the
// config provides none, in channel order [vocals chord snares claps bass].
var DefaultDecay = []float64{0.6, 0.5, 0.1, 0.1, 0.3}

// EncodeFrame renders one output frame as an L: line.
func EncodeFrame(f lights.Frame) string {
	return fmt.Sprintf("L:%d,%d,%d,%d,%d\n", f[0], f[1], f[2], f[3], f[4])
}

// EncodeDecay renders per-channel decay hints as a DECAY: line.
func EncodeDecay(rates []float64) string {
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = strconv.FormatFloat(r, 'g', -1, 64)
	}
	return "DECAY:" + strings.Join(parts, ",") + "\n"
}
