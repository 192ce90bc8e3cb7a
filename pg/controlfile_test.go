package pg

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poojanilangekar/zenith/common"
)

// a control file close to what initdb produces, with the fields this
// package cares about filled in
func testingControlFile() ControlFileData {
	return ControlFileData{
		SystemIdentifier: 0x6FF4_2B50_40D9_12AB,
		PgControlVersion: 1300,
		CatalogVersionNo: 202107181,
		State:            DBStateShutdowned,
		Time:             1630000000,
		CheckPoint:       common.Lsn(0x16960E8),
		CheckPointCopy: CheckPoint{
			Redo:            common.Lsn(0x16960E8),
			ThisTimeLineID:  1,
			PrevTimeLineID:  1,
			FullPageWrites:  true,
			NextXid:         735,
			NextOid:         24576,
			NextMulti:       1,
			NextMultiOffset: 0,
			OldestXid:       726,
			OldestXidDB:     1,
			OldestMulti:     1,
			OldestMultiDB:   1,
			Time:            1630000000,
			OldestActiveXid: 733,
		},
		MaxConnections:     100,
		MaxWorkerProcesses: 8,
		MaxWalSenders:      10,
		MaxPreparedXacts:   2,
		MaxLocksPerXact:    64,
		WalLevel:           1,
		MaxAlign:           8,
		FloatFormat:        1234567.0,
		Blcksz:             BlockSize,
		RelsegSize:         131072,
		XlogBlcksz:         XLogBlockSize,
		XlogSegSize:        WalSegmentSize,
		NameDataLen:        64,
		IndexMaxKeys:       32,
		ToastMaxChunkSize:  1996,
		Loblksize:          2048,
		Float8ByVal:        true,
	}
}

func TestCheckPointEncodeDecode(t *testing.T) {
	ckpt := testingControlFile().CheckPointCopy

	b := ckpt.Encode()
	require.Len(t, b, SizeOfCheckPoint)

	// spot check the C struct offsets
	assert.Equal(t, uint64(ckpt.Redo), binary.LittleEndian.Uint64(b[0:]))
	assert.Equal(t, uint64(ckpt.NextXid), binary.LittleEndian.Uint64(b[24:]))
	assert.Equal(t, uint32(ckpt.OldestActiveXid), binary.LittleEndian.Uint32(b[80:]))
	// padding after fullPageWrites stays zero
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0}, b[17:24])

	decoded, err := DecodeCheckPoint(b)
	require.Nil(t, err)
	assert.Equal(t, ckpt, decoded)
}

func TestDecodeCheckPointWrongSize(t *testing.T) {
	_, err := DecodeCheckPoint(make([]byte, SizeOfCheckPoint-1))
	assert.Error(t, err)
}

func TestControlFileEncodeDecode(t *testing.T) {
	cf := testingControlFile()

	b := EncodeControlFile(cf)
	require.Len(t, b, ControlFileSize)

	decoded, err := DecodeControlFile(b)
	require.Nil(t, err)

	// the encoder fills in the crc; compare everything else
	cf.Crc = decoded.Crc
	assert.Equal(t, cf, decoded)
	assert.Equal(t, Crc32c(b[:ControlFileCrcOffset]), decoded.Crc)
}

func TestDecodeControlFileCrcMismatch(t *testing.T) {
	b := EncodeControlFile(testingControlFile())
	b[cfCheckPointOffset] ^= 0xFF

	_, err := DecodeControlFile(b)
	assert.ErrorContains(t, err, "crc mismatch")
}

func TestDecodeControlFileTooShort(t *testing.T) {
	_, err := DecodeControlFile(make([]byte, 100))
	assert.Error(t, err)
}
