package webtiles

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

// syncFlushSuffix is the empty stored block a zlib sync flush ends with.
// The server strips it from every frame it sends, so the decoder must
// append it back before the frame can be fully inflated.
var syncFlushSuffix = []byte{0x00, 0x00, 0xff, 0xff}

// maxWindow is the deflate back-reference window.
const maxWindow = 32 * 1024

// streamInflater decompresses the webtiles binary stream. The server never
// closes the deflate stream between frames: every frame ends at a sync-flush
// boundary and its back-references reach into earlier frames' output. The
// inflater therefore carries the last 32KB of decompressed output forward as
// the dictionary for the next frame.
type streamInflater struct {
	fr     io.ReadCloser
	window []byte
}

func newStreamInflater() *streamInflater {
	return &streamInflater{fr: flate.NewReader(bytes.NewReader(nil))}
}

// inflate decompresses one binary frame and returns its payload.
func (si *streamInflater) inflate(frame []byte) ([]byte, error) {
	data := make([]byte, 0, len(frame)+len(syncFlushSuffix))
	data = append(data, frame...)
	data = append(data, syncFlushSuffix...)

	if err := si.fr.(flate.Resetter).Reset(bytes.NewReader(data), si.window); err != nil {
		return nil, fmt.Errorf("resetting inflater: %w", err)
	}

	out, err := io.ReadAll(si.fr)
	// The stream has no final block, so the reader runs off the end of the
	// frame; that is the expected stopping point, not a failure.
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("inflating frame: %w", err)
	}

	si.window = append(si.window, out...)
	if len(si.window) > maxWindow {
		si.window = si.window[len(si.window)-maxWindow:]
	}
	return out, nil
}

func (si *streamInflater) close() error {
	return si.fr.Close()
}
