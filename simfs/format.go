package simfs

import "encoding/binary"

// On-disk cache file layout (spec §3/§6), bit-exact:
//
//	bytes  0..0 : error_type (u8)
//	bytes  1..2 : length (u16 big-endian)
//	bytes  3..3 : structure (u8)
//	bytes  4..5 : record_length (u16 big-endian)
//	bytes  6..37: block-presence bitmap (32 bytes, LSB-first within each byte)
//	bytes 38..  : payload; unit k at offset headerSize + k*unitSize
const (
	fileInfoSize = 6
	bitmapSize   = 32
	headerSize   = fileInfoSize + bitmapSize // 38

	offErrorType    = 0
	offLength       = 1
	offStructure    = 3
	offRecordLength = 4
	offBitmap       = fileInfoSize
	bitmapBits      = bitmapSize * 8 // 256 cacheable units per EF
)

// bitmap is the 256-bit block/record presence map for one EF's cache file.
type bitmap [bitmapSize]byte

// isSet reports whether unit k is marked present. k must be < bitmapBits.
func (b *bitmap) isSet(k int) bool {
	return b[k/8]&(1<<uint(k%8)) != 0
}

// set marks unit k present.
func (b *bitmap) set(k int) {
	b[k/8] |= 1 << uint(k%8)
}

// encodeFileInfo serializes fi into the 6-byte on-disk file-info record.
func encodeFileInfo(fi FileInfo) [fileInfoSize]byte {
	var buf [fileInfoSize]byte

	buf[offErrorType] = fi.ErrorType
	binary.BigEndian.PutUint16(buf[offLength:], fi.Length)
	buf[offStructure] = uint8(fi.Structure)
	binary.BigEndian.PutUint16(buf[offRecordLength:], fi.RecordLength)

	return buf
}

// decodeFileInfo parses the 6-byte on-disk file-info record. buf must have
// length >= fileInfoSize.
func decodeFileInfo(buf []byte) FileInfo {
	return FileInfo{
		ErrorType:    buf[offErrorType],
		Length:       binary.BigEndian.Uint16(buf[offLength:]),
		Structure:    Structure(buf[offStructure]),
		RecordLength: binary.BigEndian.Uint16(buf[offRecordLength:]),
	}
}

// encodeHeader serializes the full 38-byte header: file-info followed by bitmap.
func encodeHeader(fi FileInfo, bm bitmap) [headerSize]byte {
	var buf [headerSize]byte

	fib := encodeFileInfo(fi)
	copy(buf[:fileInfoSize], fib[:])
	copy(buf[offBitmap:], bm[:])

	return buf
}

// validFileInfo checks invariant I6 (length >= record_length > 0). It does
// not look at error_type; [Engine.checkCached] handles a non-zero
// error_type separately.
func validFileInfo(fi FileInfo) bool {
	if fi.RecordLength == 0 {
		return false
	}

	if fi.Length < fi.RecordLength {
		return false
	}

	return true
}

// unitOffset returns the payload byte offset of unit k for the given unit size.
func unitOffset(k, unitSize int) int64 {
	return int64(headerSize) + int64(k)*int64(unitSize)
}
