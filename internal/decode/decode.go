// Package decode turns a stream of raw byte chunks into lossy UTF-8 text.
//
// Invalid byte sequences are replaced with U+FFFD. A multi-byte character
// that straddles two chunks is held back and decoded together with the next
// chunk instead of being replaced, so the concatenation of decoded chunks is
// independent of where the reads happened to split the stream.
package decode

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// dstSize must be at least utf8.UTFMax; larger values just mean fewer
// Transform calls per chunk.
const dstSize = 512

// Decoder decodes successive chunks of one stream. It is not safe for
// concurrent use; each relay owns its own Decoder.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// NewDecoder returns a Decoder with no carried-over bytes.
func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, dstSize),
	}
}

// Decode decodes p together with any bytes carried over from the previous
// call. An incomplete trailing sequence is kept for the next call.
func (d *Decoder) Decode(p []byte) string {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
	}

	out, rest := d.transform(src, false)
	d.pending = append([]byte(nil), rest...)

	return out
}

// Flush decodes whatever is still carried over as if the stream ended.
// Undecodable bytes become U+FFFD.
func (d *Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}

	out, _ := d.transform(d.pending, true)
	d.pending = nil

	return out
}

func (d *Decoder) transform(src []byte, atEOF bool) (string, []byte) {
	out := make([]byte, 0, len(src))

	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out = append(out, d.dst[:nDst]...)
		src = src[nSrc:]

		if errors.Is(err, transform.ErrShortDst) {
			continue
		}

		// nil or ErrShortSrc: the remainder is an incomplete sequence.
		return string(out), src
	}
}
