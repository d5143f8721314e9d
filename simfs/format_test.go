package simfs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeFileInfo_Roundtrips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fi   FileInfo
	}{
		{"transparent", FileInfo{Structure: StructureTransparent, Length: 32, RecordLength: 32}},
		{"fixed", FileInfo{Structure: StructureFixed, Length: 60, RecordLength: 20}},
		{"cyclic with error", FileInfo{ErrorType: 1, Structure: StructureCyclic, Length: 12, RecordLength: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := encodeFileInfo(tt.fi)
			got := decodeFileInfo(buf[:])

			if diff := cmp.Diff(tt.fi, got); diff != "" {
				t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeHeader_LayoutOffsets(t *testing.T) {
	t.Parallel()

	fi := FileInfo{ErrorType: 0, Structure: StructureFixed, Length: 0x1234, RecordLength: 0x0056}

	var bm bitmap

	bm.set(0)
	bm.set(9)

	hdr := encodeHeader(fi, bm)

	if len(hdr) != headerSize {
		t.Fatalf("headerSize = %d, want %d", len(hdr), headerSize)
	}

	if hdr[offStructure] != uint8(StructureFixed) {
		t.Errorf("structure byte = %d, want %d", hdr[offStructure], StructureFixed)
	}

	if hdr[offLength] != 0x12 || hdr[offLength+1] != 0x34 {
		t.Errorf("length bytes = %02x %02x, want 12 34 (big-endian)", hdr[offLength], hdr[offLength+1])
	}

	gotBitmap := hdr[offBitmap:]
	if gotBitmap[0]&1 == 0 {
		t.Error("bit 0 not set in encoded bitmap")
	}

	if gotBitmap[1]&(1<<1) == 0 {
		t.Error("bit 9 not set in encoded bitmap")
	}
}

func TestBitmap_SetIsSet(t *testing.T) {
	t.Parallel()

	var bm bitmap

	for _, k := range []int{0, 1, 7, 8, 255} {
		if bm.isSet(k) {
			t.Fatalf("bit %d unexpectedly set before Set", k)
		}

		bm.set(k)

		if !bm.isSet(k) {
			t.Fatalf("bit %d not set after Set", k)
		}
	}
}

func TestValidFileInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fi   FileInfo
		want bool
	}{
		{"record length zero", FileInfo{Length: 10, RecordLength: 0}, false},
		{"length less than record length", FileInfo{Length: 5, RecordLength: 10}, false},
		{"length equals record length", FileInfo{Length: 10, RecordLength: 10}, true},
		{"length multiple of record length", FileInfo{Length: 30, RecordLength: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := validFileInfo(tt.fi); got != tt.want {
				t.Errorf("validFileInfo(%+v) = %v, want %v", tt.fi, got, tt.want)
			}
		})
	}
}

func TestUnitOffset(t *testing.T) {
	t.Parallel()

	if got := unitOffset(0, 256); got != int64(headerSize) {
		t.Errorf("unitOffset(0, 256) = %d, want %d", got, headerSize)
	}

	if got := unitOffset(2, 10); got != int64(headerSize)+20 {
		t.Errorf("unitOffset(2, 10) = %d, want %d", got, int64(headerSize)+20)
	}
}
