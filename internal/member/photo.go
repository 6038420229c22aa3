package member

import "encoding/binary"

// MaxPhotoBytes is the upload cap for profile photos.
const MaxPhotoBytes = 100 * 1024

// HasJpegHeader reports whether the buffer starts with a JPEG SOI marker
// followed by an APP-segment marker in the 0xE0-0xEF range. A structural
// check only, not a decode.
func HasJpegHeader(b []byte) bool {
	if len(b) <= 4 {
		return false
	}

	soi := binary.LittleEndian.Uint16(b)
	marker := binary.LittleEndian.Uint16(b[2:])

	return soi == 0xd8ff && marker&0xe0ff == 0xe0ff
}
