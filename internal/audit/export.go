package audit

import (
	"encoding/json"
	"io"

	"github.com/klauspost/compress/zstd"

	"reposcope/internal/storage"
)

// Export writes the recorded events as JSONL, one event per line.
// With compress set the stream is zstd-encoded.
func Export(db *storage.DB, runID string, w io.Writer, compress bool) (int, error) {
	events, err := Events(db, runID)
	if err != nil {
		return 0, err
	}

	out := w
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(w)
		if err != nil {
			return 0, err
		}
		out = enc
	}

	written := 0
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return written, err
		}
		if _, err := out.Write(append(line, '\n')); err != nil {
			return written, err
		}
		written++
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return written, err
		}
	}
	return written, nil
}
