package bench

import (
	"encoding/base64"
	"strings"
)

// encodeWrapped base64-encodes s with a line break every 76 characters, the
// way Judge0 returns long outputs.
func encodeWrapped(s string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteByte('\n')
		enc = enc[76:]
	}
	b.WriteString(enc)
	return b.String()
}
