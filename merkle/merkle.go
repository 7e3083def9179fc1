// Package merkle builds the root commitment over an ordered transaction batch.
//
// The reduction rule is part of the on-chain commitment format and must not
// change: leaves are the lowercase-hex transaction digests, each level pairs
// neighbours left-to-right and hashes the concatenation of the two hex
// strings with SHA-256, and a level with an odd number of nodes duplicates
// its last node before pairing. An empty batch commits to EmptyRoot.
package merkle

import (
	"strings"

	"marketchain/common"
)

// EmptyRoot is the reserved commitment for an empty transaction batch.
var EmptyRoot = strings.Repeat("0", common.DigestHexLen)

// Root reduces an ordered list of transaction digests to a single root.
// It is a pure function: identical batches in identical order always
// produce identical roots, and any reordering or mutation changes it.
func Root(txIDs []string) string {
	if len(txIDs) == 0 {
		return EmptyRoot
	}

	level := make([]string, len(txIDs))
	copy(level, txIDs)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			combined := level[i] + level[i+1]
			next = append(next, common.Sha256Hex([]byte(combined)))
		}
		level = next
	}
	return level[0]
}
