package blob

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

// SniffImage detects the content type from the leading bytes of r and
// rejects anything that is not a supported image. The returned reader yields
// the full original stream.
func SniffImage(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), imageTypes...) {
		return nil, "", ErrUnsupportedMedia
	}
	return io.MultiReader(bytes.NewReader(head), r), mtype.String(), nil
}
