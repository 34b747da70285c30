package uploadx

import "bytes"

// signaturePart is one byte pattern expected at a fixed offset.
type signaturePart struct {
	offset int
	magic  []byte
}

// fileSignature maps a binary signature to its MIME type and the file
// extensions that legitimately carry it. Multi-part signatures (WEBP)
// require every part to match.
type fileSignature struct {
	mime       string
	extensions []string
	parts      []signaturePart
}

// knownSignatures is checked in order; the first full match wins.
// Offsets and byte values follow the published file format definitions.
var knownSignatures = []fileSignature{
	{
		mime:       "image/jpeg",
		extensions: []string{".jpg", ".jpeg", ".jfif"},
		parts:      []signaturePart{{0, []byte{0xFF, 0xD8, 0xFF}}},
	},
	{
		mime:       "image/png",
		extensions: []string{".png"},
		parts:      []signaturePart{{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}},
	},
	{
		mime:       "image/gif",
		extensions: []string{".gif"},
		parts:      []signaturePart{{0, []byte("GIF87a")}},
	},
	{
		mime:       "image/gif",
		extensions: []string{".gif"},
		parts:      []signaturePart{{0, []byte("GIF89a")}},
	},
	{
		// RIFF container with WEBP subtype at offset 8.
		mime:       "image/webp",
		extensions: []string{".webp"},
		parts: []signaturePart{
			{0, []byte("RIFF")},
			{8, []byte("WEBP")},
		},
	},
	{
		mime:       "image/bmp",
		extensions: []string{".bmp"},
		parts:      []signaturePart{{0, []byte{0x42, 0x4D}}},
	},
	{
		mime:       "image/tiff",
		extensions: []string{".tif", ".tiff"},
		parts:      []signaturePart{{0, []byte{0x49, 0x49, 0x2A, 0x00}}}, // little-endian
	},
	{
		mime:       "image/tiff",
		extensions: []string{".tif", ".tiff"},
		parts:      []signaturePart{{0, []byte{0x4D, 0x4D, 0x00, 0x2A}}}, // big-endian
	},
	{
		mime:       "image/x-icon",
		extensions: []string{".ico"},
		parts:      []signaturePart{{0, []byte{0x00, 0x00, 0x01, 0x00}}},
	},
	{
		mime:       "image/avif",
		extensions: []string{".avif"},
		parts:      []signaturePart{{4, []byte("ftypavif")}},
	},
}

// sniffLen is how many leading bytes detectSignature needs. The largest
// offset+magic in the table is AVIF's "ftypavif" ending at byte 12.
const sniffLen = 16

// detectSignature matches the leading bytes of a file against the
// signature table. ok is false when no signature matches.
func detectSignature(head []byte) (fileSignature, bool) {
	for _, sig := range knownSignatures {
		if matchSignature(head, sig) {
			return sig, true
		}
	}
	return fileSignature{}, false
}

func matchSignature(head []byte, sig fileSignature) bool {
	for _, part := range sig.parts {
		end := part.offset + len(part.magic)
		if len(head) < end {
			return false
		}
		if !bytes.Equal(head[part.offset:end], part.magic) {
			return false
		}
	}
	return true
}

// hasExtension reports whether ext (lowercase, dot included) is one of
// the signature's legitimate extensions.
func (s fileSignature) hasExtension(ext string) bool {
	for _, e := range s.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// mimeAliases maps equivalent claimed MIME spellings to the canonical
// form used in the signature table.
var mimeAliases = map[string]string{
	"image/jpg":                "image/jpeg",
	"image/vnd.microsoft.icon": "image/x-icon",
}

// canonicalMIME normalizes a claimed MIME type for comparison against a
// detected type.
func canonicalMIME(mime string) string {
	if canonical, ok := mimeAliases[mime]; ok {
		return canonical
	}
	return mime
}
