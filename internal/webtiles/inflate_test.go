package webtiles

import (
	"bytes"
	"compress/flate"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

// compressFrames produces server-style binary frames: one continuous deflate
// stream, flushed after each frame, with the sync-flush suffix stripped.
func compressFrames(t *testing.T, payloads []string) [][]byte {
	t.Helper()

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("creating flate writer: %v", err)
	}

	frames := make([][]byte, 0, len(payloads))
	for _, p := range payloads {
		start := buf.Len()
		if _, err := fw.Write([]byte(p)); err != nil {
			t.Fatalf("compressing payload: %v", err)
		}
		if err := fw.Flush(); err != nil {
			t.Fatalf("flushing payload: %v", err)
		}
		frame := append([]byte(nil), buf.Bytes()[start:]...)
		if len(frame) < len(syncFlushSuffix) || !bytes.HasSuffix(frame, syncFlushSuffix) {
			t.Fatalf("flush did not end with sync suffix: % x", frame)
		}
		frames = append(frames, frame[:len(frame)-len(syncFlushSuffix)])
	}
	return frames
}

func TestStreamInflater_SingleFrame(t *testing.T) {
	payload := `{"msgs":[{"msg":"ping"}]}`
	frames := compressFrames(t, []string{payload})

	si := newStreamInflater()
	defer si.close()

	out, err := si.inflate(frames[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "payload", string(out), payload)
}

func TestStreamInflater_CrossFrameBackReferences(t *testing.T) {
	// Later frames reference earlier frames' output, so each must see the
	// accumulated window. Repeating text forces back-references.
	payloads := []string{
		`{"msgs":[{"msg":"player","hp":17,"hp_max":17}]}`,
		`{"msgs":[{"msg":"player","hp":16,"hp_max":17}]}`,
		`{"msgs":[{"msg":"player","hp":15,"hp_max":17}]}`,
	}
	frames := compressFrames(t, payloads)

	si := newStreamInflater()
	defer si.close()

	for i, frame := range frames {
		out, err := si.inflate(frame)
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		testutil.AssertEqual(t, "payload", string(out), payloads[i])
	}
}

func TestStreamInflater_WindowBounded(t *testing.T) {
	big := strings.Repeat("abcdefgh", maxWindow/4)
	frames := compressFrames(t, []string{big, "tail"})

	si := newStreamInflater()
	defer si.close()

	out, err := si.inflate(frames[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "big payload length", len(out), len(big))

	if len(si.window) > maxWindow {
		t.Errorf("window grew past limit: %d > %d", len(si.window), maxWindow)
	}

	out, err = si.inflate(frames[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "tail payload", string(out), "tail")
}

func TestStreamInflater_GarbageFrame(t *testing.T) {
	si := newStreamInflater()
	defer si.close()

	_, err := si.inflate([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03})
	if err == nil {
		t.Error("expected error for garbage frame")
	}
}
