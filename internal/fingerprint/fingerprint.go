// Package fingerprint derives the content-addressed keys used for job
// deduplication and result caching. Fingerprints must be deterministic:
// two semantically equal configs hash identically regardless of map
// insertion order.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint hashes text together with a canonical serialization of cfg
// and returns the SHA-256 hex digest. Empty text and empty config are valid.
func Fingerprint(text string, cfg map[string]any) string {
	h := sha256.New()
	h.Write([]byte(canonical(cfg)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Text hashes the text alone. This is the fingerprint stored on a job and
// used in the Submit dedup key, which deliberately ignores prosody config.
func Text(text string) string {
	return Fingerprint(text, nil)
}

// Config hashes the config alone. Used as the third component of the
// result-cache key.
func Config(cfg map[string]any) string {
	h := sha256.Sum256([]byte(canonical(cfg)))
	return hex.EncodeToString(h[:])
}

// canonical serializes cfg with keys sorted lexicographically. Values are
// JSON-encoded; encoding/json already sorts nested string-keyed maps, so
// the whole serialization is order-independent.
func canonical(cfg map[string]any) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		v, err := json.Marshal(cfg[k])
		if err != nil {
			// Unmarshalable values (channels, funcs) never appear in
			// boundary-validated configs; fall back to fmt for safety.
			b.WriteString(fmt.Sprintf("%v", cfg[k]))
			continue
		}
		b.Write(v)
	}
	return b.String()
}
