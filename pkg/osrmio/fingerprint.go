// Package osrmio writes the on-disk artifacts spec.md 6 lists: one file per
// pipeline output, each prefixed with a shared 16-byte fingerprint tying it
// to a schema version. Grounded on the teacher's pkg/kv encoder (which pairs
// kelindar/binary with DataDog/zstd for its own on-disk KV segments) and its
// pkg/datastructure/rtree.go gob-based Serialize/Deserialize pair, adapted
// here to fixed binary layouts since these files are read back by a
// (non-goal, but future) query engine that needs stable offsets, not by
// another Go process happy to gob-decode.
package osrmio

import (
	"encoding/binary"
	"fmt"
	"io"
)

// fingerprintSize matches spec.md 6's "a fixed 16-byte identifier".
const fingerprintSize = 16

// schemaVersion bumps whenever a record layout below changes incompatibly.
const schemaVersion = uint32(1)

// magic identifies this pipeline's artifacts specifically, distinguishing
// them from a differently-shaped file that happens to be the right size.
var magic = [8]byte{'G', 'R', 'A', 'P', 'H', 'X', 'T', '1'}

// Fingerprint is the 16-byte header written at the start of every artifact:
// 8 bytes of magic, 4 bytes of schema version, 4 bytes reserved.
type Fingerprint [fingerprintSize]byte

func newFingerprint() Fingerprint {
	var fp Fingerprint
	copy(fp[:8], magic[:])
	binary.LittleEndian.PutUint32(fp[8:12], schemaVersion)
	return fp
}

func writeFingerprint(w io.Writer) error {
	fp := newFingerprint()
	_, err := w.Write(fp[:])
	return err
}

func readFingerprint(r io.Reader) error {
	var fp Fingerprint
	if _, err := io.ReadFull(r, fp[:]); err != nil {
		return fmt.Errorf("osrmio: reading fingerprint: %w", err)
	}
	for i := 0; i < 8; i++ {
		if fp[i] != magic[i] {
			return fmt.Errorf("osrmio: bad magic, this file was not produced by this pipeline")
		}
	}
	gotVersion := binary.LittleEndian.Uint32(fp[8:12])
	if gotVersion != schemaVersion {
		return fmt.Errorf("osrmio: schema version %d, this pipeline writes/reads %d", gotVersion, schemaVersion)
	}
	return nil
}
