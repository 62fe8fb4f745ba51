// Package reencrypt rewrites encrypted asset files in place while keeping
// every checksum recorded in the external asset index bit-exact.
//
// Assets live on disk as opaque filler bytes followed by content, XORed
// with a per-file keystream. The index records, per path, the filler
// length, the CRC-32 of the encrypted file and the CRC-32 of the decrypted
// content. An external validator re-derives those checksums, so a replaced
// asset must reproduce them exactly even though its content changed.
// Instead of editing the index, the reencryptor forges the file: a 4-byte
// suffix appended to the new content pins the content checksum, and 4
// encrypted filler bytes overwritten after encryption pin the file
// checksum. The index is never modified.
//
//	idx, err := reencrypt.ParseIndex(indexFile)
//	ks, err := reencrypt.NewChaChaKeystream(seed)
//	r := reencrypt.NewReencryptor(ks)
//
//	entry, ok := idx.Lookup("/edata/images/table.png")
//	res := r.ReencryptFile(entry, newContent, "/mnt/game/edata/images/table.png")
//	if !res.Ok() {
//		// res.State and res.Err say where it stopped
//	}
//
// Batch runs a whole change set concurrently, one keystream per worker,
// and aggregates per-file results. ScanChanges diffs an asset tree against
// a digest baseline to produce that change set, and SpotCheck samples
// untouched entries afterward to detect out-of-band modification.
package reencrypt
