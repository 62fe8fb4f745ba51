// Package compress provides stream compression and decompression codecs for
// partclone image transport.
//
// A partclone image travels as one continuous compressed stream, usually
// split across several files; Clonezilla produces gzip by default and zstd
// or lz4 on request. This package detects the transport compression from
// the stream's leading magic bytes and wraps the stream with the matching
// decompressor, so the decoder never needs to be told which flavor it was
// handed.
//
// # Reading
//
//	rc, kind, err := compress.NewReader(multipart)
//	if err != nil { ... }
//	defer rc.Close()
//	// rc now yields the raw partclone descriptor bytes
//
// NewReader peeks at the stream without consuming it, so an uncompressed
// image passes through untouched (CompressionNone).
//
// # Writing
//
//	wc, err := compress.NewWriter(format.CompressionGzip, out)
//	if err != nil { ... }
//	// write image bytes; Close flushes the compressed trailer
//
// # Supported formats
//
//   - Gzip: the common transport; multistream-tolerant on the read side
//   - Zstd: pure-Go by default, cgo implementation behind the cgozstd tag
//   - LZ4: frame format
//   - S2: snappy-compatible framed format
//   - None: passthrough
//
// All constructors return streams that are NOT safe for concurrent use;
// one goroutine owns a stream end to end.
package compress
