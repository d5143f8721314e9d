package simdriver_test

import (
	"errors"
	"testing"

	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/simfs"
	"github.com/Nitdroid-Reborn/tracking-repository-for-39379/simfs/simdriver"
)

func TestDriver_ReadFileInfo_UnknownFile(t *testing.T) {
	t.Parallel()

	d := simdriver.New(simfs.NewSyncScheduler())

	var got simfs.FileInfoResult

	d.ReadFileInfo(simfs.EFID(1), func(res simfs.FileInfoResult) { got = res })

	if !errors.Is(got.Err, simdriver.ErrUnknownFile) {
		t.Fatalf("err = %v, want ErrUnknownFile", got.Err)
	}
}

func TestDriver_ReadFileInfo_KnownFile(t *testing.T) {
	t.Parallel()

	d := simdriver.New(simfs.NewSyncScheduler())

	d.AddFile(simfs.EFID(1), simdriver.File{
		Structure: simfs.StructureTransparent,
		Access:    [3]byte{0x0f, 0x00, 0xff},
		Data:      []byte("abcdef"),
	})

	var got simfs.FileInfoResult

	d.ReadFileInfo(simfs.EFID(1), func(res simfs.FileInfoResult) { got = res })

	if got.Err != nil || got.Length != 6 || got.Structure != simfs.StructureTransparent {
		t.Fatalf("got %+v, want length=6 structure=transparent err=nil", got)
	}
}

func TestDriver_ReadFileTransparent_ReturnsSlice(t *testing.T) {
	t.Parallel()

	d := simdriver.New(simfs.NewSyncScheduler())

	d.AddFile(simfs.EFID(1), simdriver.File{Structure: simfs.StructureTransparent, Data: []byte("0123456789")})

	var got simfs.BlockResult

	d.ReadFileTransparent(simfs.EFID(1), 3, 4, func(res simfs.BlockResult) { got = res })

	if got.Err != nil || string(got.Data) != "3456" {
		t.Fatalf("got %+v, want data=3456", got)
	}
}

func TestDriver_ReadFileLinear_ReturnsRecord(t *testing.T) {
	t.Parallel()

	d := simdriver.New(simfs.NewSyncScheduler())

	d.AddFile(simfs.EFID(1), simdriver.File{
		Structure: simfs.StructureFixed, RecordLength: 3, Data: []byte("AAABBBCCC"),
	})

	var got simfs.BlockResult

	d.ReadFileLinear(simfs.EFID(1), 2, 3, func(res simfs.BlockResult) { got = res })

	if got.Err != nil || string(got.Data) != "BBB" {
		t.Fatalf("got %+v, want data=BBB", got)
	}
}

func TestDriver_WriteFileTransparent_GrowsAndWrites(t *testing.T) {
	t.Parallel()

	d := simdriver.New(simfs.NewSyncScheduler())

	d.AddFile(simfs.EFID(1), simdriver.File{Structure: simfs.StructureTransparent, Data: []byte{}})

	var writeErr error

	d.WriteFileTransparent(simfs.EFID(1), 0, 5, []byte("hello"), func(err error) { writeErr = err })

	if writeErr != nil {
		t.Fatalf("WriteFileTransparent: %v", writeErr)
	}

	var got simfs.BlockResult

	d.ReadFileTransparent(simfs.EFID(1), 0, 5, func(res simfs.BlockResult) { got = res })

	if string(got.Data) != "hello" {
		t.Fatalf("read-back = %q, want hello", got.Data)
	}
}

func TestDriver_WriteFileCyclic_ShiftsMostRecentFirst(t *testing.T) {
	t.Parallel()

	d := simdriver.New(simfs.NewSyncScheduler())

	d.AddFile(simfs.EFID(1), simdriver.File{
		Structure: simfs.StructureCyclic, RecordLength: 4, Data: []byte("AAAABBBB"),
	})

	var writeErr error

	d.WriteFileCyclic(simfs.EFID(1), 4, []byte("CCCC"), func(err error) { writeErr = err })

	if writeErr != nil {
		t.Fatalf("WriteFileCyclic: %v", writeErr)
	}

	var rec1, rec2 simfs.BlockResult

	d.ReadFileCyclic(simfs.EFID(1), 1, 4, func(res simfs.BlockResult) { rec1 = res })
	d.ReadFileCyclic(simfs.EFID(1), 2, 4, func(res simfs.BlockResult) { rec2 = res })

	if string(rec1.Data) != "CCCC" || string(rec2.Data) != "AAAA" {
		t.Fatalf("rec1=%q rec2=%q, want CCCC, AAAA (most recent first, oldest dropped)", rec1.Data, rec2.Data)
	}
}

func TestIdentity_NoIMSI(t *testing.T) {
	t.Parallel()

	id := simdriver.NewIdentity("", simfs.Phase(2))

	if _, ok := id.IMSI(); ok {
		t.Fatal("expected no IMSI")
	}

	if id.Phase() != simfs.Phase(2) {
		t.Fatalf("Phase() = %v, want 2", id.Phase())
	}
}

func TestIdentity_WithIMSI(t *testing.T) {
	t.Parallel()

	id := simdriver.NewIdentity("001010000000001", simfs.Phase(2))

	imsi, ok := id.IMSI()
	if !ok || imsi != "001010000000001" {
		t.Fatalf("IMSI() = (%q, %v), want (001010000000001, true)", imsi, ok)
	}
}
