package agent

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// ResultID computes the stable 16-hex-character result identifier of
// spec §5's agent surface: the first 8 bytes of BLAKE3("path:line:snippet"),
// hex-encoded. Stability across runs (so a hint cached today still
// resolves tomorrow) is the whole point, so this must never depend on
// wall-clock time, process PID, or map iteration order.
func ResultID(path string, line int, snippet string) string {
	key := fmt.Sprintf("%s:%d:%s", path, line, snippet)
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
