package identity

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

const separator = "::"

// DeterministicID derives a stable identity from the semantic fields of
// an entry. Two devices that independently scouted the same team in the
// same match produce the same deterministic id even though their random
// primary ids differ.
func DeterministicID(eventKey, matchKey string, teamNumber int, alliance string) string {
	return fmt.Sprintf("%s%s%s%s%d%s%s",
		normalize(eventKey), separator,
		normalize(matchKey), separator,
		teamNumber, separator,
		normalize(alliance),
	)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fingerprint computes a 32-bit FNV-1a content hash of a payload,
// base-36 encoded. Nested maps are flattened to dot-paths and keys are
// sorted before hashing, so the result does not depend on key insertion
// order. Non-cryptographic; used only for content-equality checks.
func Fingerprint(payload map[string]interface{}) string {
	flat := Flatten(payload)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+encodeValue(flat[k]))
	}

	h := fnv.New32a()
	h.Write([]byte(strings.Join(parts, "|")))

	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// Flatten rewrites nested plain maps as dot-separated paths. Arrays are
// treated as leaves.
func Flatten(payload map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(payload))
	flattenInto(flat, "", payload)
	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(flat, key, nested)
			continue
		}
		flat[key] = v
	}
}

// encodeValue renders a leaf deterministically. json.Marshal sorts map
// keys, so even leaves that slipped through as maps hash stably.
func encodeValue(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Equal compares two leaf values by their deterministic encoding. Used
// for field diffing, where 2 and 2.0 arriving from different JSON
// decoders must not register as a change.
func Equal(a, b interface{}) bool {
	return encodeValue(a) == encodeValue(b)
}
