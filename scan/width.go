package scan

import (
	"os"
	"strconv"
	"strings"

	"github.com/tremwil/scanner-bench/internal/bytealg"
)

// WidthEnv names the environment variable that overrides DefaultWidth.
const WidthEnv = "SIGSCAN_WIDTH"

// DefaultWidth returns the vector width used when Config.Width is zero: the
// widest register the CPU compares bytes in, unless WidthEnv holds a valid
// width. Invalid overrides are ignored.
func DefaultWidth() int {
	if w, ok := widthOverride(os.Getenv(WidthEnv)); ok {
		return w
	}
	return cpuWidth()
}

func widthOverride(s string) (int, bool) {
	w, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !bytealg.ValidWidth(w) {
		return 0, false
	}
	return w, true
}
