package archive

import "bytes"

// minArchiveSize is the length of an empty ZIP: a bare end-of-central-directory
// record is 22 bytes, so anything shorter cannot be a well-formed archive.
const minArchiveSize = 22

// zipSignatures are the magic numbers a ZIP container may start with:
// a local file header, an empty archive, or a spanned archive marker.
var zipSignatures = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
	{0x50, 0x4B, 0x05, 0x06},
	{0x50, 0x4B, 0x07, 0x08},
}

// IsValidArchive reports whether data looks like a well-formed ZIP container.
// The extraction service occasionally wraps an error payload in a 200
// response; checking the container shape up front turns that into an early,
// clearly-labeled rejection instead of a confusing parse failure later.
func IsValidArchive(data []byte) bool {
	if len(data) < minArchiveSize {
		return false
	}
	for _, sig := range zipSignatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}
