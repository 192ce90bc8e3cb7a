package pg

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/poojanilangekar/zenith/common"
)

const (
	// ControlFileSize is PG_CONTROL_FILE_SIZE: pg_control is always written
	// out at this size so that it fits in one sector-aligned block
	// see https://github.com/postgres/postgres/blob/REL_14_STABLE/src/include/catalog/pg_control.h#L249-L253
	ControlFileSize = 8192

	// ControlFileCrcOffset is offsetof(ControlFileData, crc)
	ControlFileCrcOffset = 288

	// sizeOfControlFileData is sizeof(ControlFileData): crc plus tail padding
	sizeOfControlFileData = 296
)

// ControlFileData mirrors the ControlFileData struct stored in
// global/pg_control. the engine reads it at startup to locate the last
// checkpoint, so every field and padding byte must land at the C offset
// see https://github.com/postgres/postgres/blob/REL_14_STABLE/src/include/catalog/pg_control.h#L94-L246
type ControlFileData struct {
	SystemIdentifier        uint64
	PgControlVersion        uint32
	CatalogVersionNo        uint32
	State                   uint32
	Time                    int64
	CheckPoint              common.Lsn
	CheckPointCopy          CheckPoint
	UnloggedLSN             common.Lsn
	MinRecoveryPoint        common.Lsn
	MinRecoveryPointTLI     uint32
	BackupStartPoint        common.Lsn
	BackupEndPoint          common.Lsn
	BackupEndRequired       bool
	WalLevel                int32
	WalLogHints             bool
	MaxConnections          int32
	MaxWorkerProcesses      int32
	MaxWalSenders           int32
	MaxPreparedXacts        int32
	MaxLocksPerXact         int32
	TrackCommitTimestamp    bool
	MaxAlign                uint32
	FloatFormat             float64
	Blcksz                  uint32
	RelsegSize              uint32
	XlogBlcksz              uint32
	XlogSegSize             uint32
	NameDataLen             uint32
	IndexMaxKeys            uint32
	ToastMaxChunkSize       uint32
	Loblksize               uint32
	Float8ByVal             bool
	DataChecksumVersion     uint32
	MockAuthenticationNonce [32]byte
	Crc                     uint32
}

// DBStateShutdowned is the DB_SHUTDOWNED state: the cluster was stopped
// after a clean shutdown checkpoint
const DBStateShutdowned uint32 = 1

const (
	cfSystemIdentifierOffset     = 0
	cfPgControlVersionOffset     = 8
	cfCatalogVersionNoOffset     = 12
	cfStateOffset                = 16
	cfTimeOffset                 = 24
	cfCheckPointOffset           = 32
	cfCheckPointCopyOffset       = 40
	cfUnloggedLSNOffset          = 128
	cfMinRecoveryPointOffset     = 136
	cfMinRecoveryPointTLIOffset  = 144
	cfBackupStartPointOffset     = 152
	cfBackupEndPointOffset       = 160
	cfBackupEndRequiredOffset    = 168
	cfWalLevelOffset             = 172
	cfWalLogHintsOffset          = 176
	cfMaxConnectionsOffset       = 180
	cfMaxWorkerProcessesOffset   = 184
	cfMaxWalSendersOffset        = 188
	cfMaxPreparedXactsOffset     = 192
	cfMaxLocksPerXactOffset      = 196
	cfTrackCommitTimestampOffset = 200
	cfMaxAlignOffset             = 204
	cfFloatFormatOffset          = 208
	cfBlckszOffset               = 216
	cfRelsegSizeOffset           = 220
	cfXlogBlckszOffset           = 224
	cfXlogSegSizeOffset          = 228
	cfNameDataLenOffset          = 232
	cfIndexMaxKeysOffset         = 236
	cfToastMaxChunkSizeOffset    = 240
	cfLoblksizeOffset            = 244
	cfFloat8ByValOffset          = 248
	cfDataChecksumVersionOffset  = 252
	cfMockAuthNonceOffset        = 256
)

// DecodeControlFile decodes and crc-checks a pg_control image
func DecodeControlFile(b []byte) (ControlFileData, error) {
	var cf ControlFileData
	if len(b) < sizeOfControlFileData {
		return cf, errors.Errorf("control file image must be at least %d bytes: got %d", sizeOfControlFileData, len(b))
	}
	cf.Crc = binary.LittleEndian.Uint32(b[ControlFileCrcOffset:])
	if crc := Crc32c(b[:ControlFileCrcOffset]); crc != cf.Crc {
		return cf, errors.Errorf("control file crc mismatch: computed %08X, stored %08X", crc, cf.Crc)
	}
	cf.SystemIdentifier = binary.LittleEndian.Uint64(b[cfSystemIdentifierOffset:])
	cf.PgControlVersion = binary.LittleEndian.Uint32(b[cfPgControlVersionOffset:])
	cf.CatalogVersionNo = binary.LittleEndian.Uint32(b[cfCatalogVersionNoOffset:])
	cf.State = binary.LittleEndian.Uint32(b[cfStateOffset:])
	cf.Time = int64(binary.LittleEndian.Uint64(b[cfTimeOffset:]))
	cf.CheckPoint = common.Lsn(binary.LittleEndian.Uint64(b[cfCheckPointOffset:]))
	ckpt, err := DecodeCheckPoint(b[cfCheckPointCopyOffset : cfCheckPointCopyOffset+SizeOfCheckPoint])
	if err != nil {
		return cf, errors.Wrap(err, "DecodeCheckPoint failed")
	}
	cf.CheckPointCopy = ckpt
	cf.UnloggedLSN = common.Lsn(binary.LittleEndian.Uint64(b[cfUnloggedLSNOffset:]))
	cf.MinRecoveryPoint = common.Lsn(binary.LittleEndian.Uint64(b[cfMinRecoveryPointOffset:]))
	cf.MinRecoveryPointTLI = binary.LittleEndian.Uint32(b[cfMinRecoveryPointTLIOffset:])
	cf.BackupStartPoint = common.Lsn(binary.LittleEndian.Uint64(b[cfBackupStartPointOffset:]))
	cf.BackupEndPoint = common.Lsn(binary.LittleEndian.Uint64(b[cfBackupEndPointOffset:]))
	cf.BackupEndRequired = b[cfBackupEndRequiredOffset] != 0
	cf.WalLevel = int32(binary.LittleEndian.Uint32(b[cfWalLevelOffset:]))
	cf.WalLogHints = b[cfWalLogHintsOffset] != 0
	cf.MaxConnections = int32(binary.LittleEndian.Uint32(b[cfMaxConnectionsOffset:]))
	cf.MaxWorkerProcesses = int32(binary.LittleEndian.Uint32(b[cfMaxWorkerProcessesOffset:]))
	cf.MaxWalSenders = int32(binary.LittleEndian.Uint32(b[cfMaxWalSendersOffset:]))
	cf.MaxPreparedXacts = int32(binary.LittleEndian.Uint32(b[cfMaxPreparedXactsOffset:]))
	cf.MaxLocksPerXact = int32(binary.LittleEndian.Uint32(b[cfMaxLocksPerXactOffset:]))
	cf.TrackCommitTimestamp = b[cfTrackCommitTimestampOffset] != 0
	cf.MaxAlign = binary.LittleEndian.Uint32(b[cfMaxAlignOffset:])
	cf.FloatFormat = math.Float64frombits(binary.LittleEndian.Uint64(b[cfFloatFormatOffset:]))
	cf.Blcksz = binary.LittleEndian.Uint32(b[cfBlckszOffset:])
	cf.RelsegSize = binary.LittleEndian.Uint32(b[cfRelsegSizeOffset:])
	cf.XlogBlcksz = binary.LittleEndian.Uint32(b[cfXlogBlckszOffset:])
	cf.XlogSegSize = binary.LittleEndian.Uint32(b[cfXlogSegSizeOffset:])
	cf.NameDataLen = binary.LittleEndian.Uint32(b[cfNameDataLenOffset:])
	cf.IndexMaxKeys = binary.LittleEndian.Uint32(b[cfIndexMaxKeysOffset:])
	cf.ToastMaxChunkSize = binary.LittleEndian.Uint32(b[cfToastMaxChunkSizeOffset:])
	cf.Loblksize = binary.LittleEndian.Uint32(b[cfLoblksizeOffset:])
	cf.Float8ByVal = b[cfFloat8ByValOffset] != 0
	cf.DataChecksumVersion = binary.LittleEndian.Uint32(b[cfDataChecksumVersionOffset:])
	copy(cf.MockAuthenticationNonce[:], b[cfMockAuthNonceOffset:cfMockAuthNonceOffset+32])
	return cf, nil
}

// EncodeControlFile encodes the struct into a full pg_control image.
// the crc field of the struct is ignored; it is recomputed over the
// encoded bytes the way pg_resetwal does before writing
func EncodeControlFile(cf ControlFileData) []byte {
	b := make([]byte, ControlFileSize)
	binary.LittleEndian.PutUint64(b[cfSystemIdentifierOffset:], cf.SystemIdentifier)
	binary.LittleEndian.PutUint32(b[cfPgControlVersionOffset:], cf.PgControlVersion)
	binary.LittleEndian.PutUint32(b[cfCatalogVersionNoOffset:], cf.CatalogVersionNo)
	binary.LittleEndian.PutUint32(b[cfStateOffset:], cf.State)
	binary.LittleEndian.PutUint64(b[cfTimeOffset:], uint64(cf.Time))
	binary.LittleEndian.PutUint64(b[cfCheckPointOffset:], uint64(cf.CheckPoint))
	copy(b[cfCheckPointCopyOffset:], cf.CheckPointCopy.Encode())
	binary.LittleEndian.PutUint64(b[cfUnloggedLSNOffset:], uint64(cf.UnloggedLSN))
	binary.LittleEndian.PutUint64(b[cfMinRecoveryPointOffset:], uint64(cf.MinRecoveryPoint))
	binary.LittleEndian.PutUint32(b[cfMinRecoveryPointTLIOffset:], cf.MinRecoveryPointTLI)
	binary.LittleEndian.PutUint64(b[cfBackupStartPointOffset:], uint64(cf.BackupStartPoint))
	binary.LittleEndian.PutUint64(b[cfBackupEndPointOffset:], uint64(cf.BackupEndPoint))
	if cf.BackupEndRequired {
		b[cfBackupEndRequiredOffset] = 1
	}
	binary.LittleEndian.PutUint32(b[cfWalLevelOffset:], uint32(cf.WalLevel))
	if cf.WalLogHints {
		b[cfWalLogHintsOffset] = 1
	}
	binary.LittleEndian.PutUint32(b[cfMaxConnectionsOffset:], uint32(cf.MaxConnections))
	binary.LittleEndian.PutUint32(b[cfMaxWorkerProcessesOffset:], uint32(cf.MaxWorkerProcesses))
	binary.LittleEndian.PutUint32(b[cfMaxWalSendersOffset:], uint32(cf.MaxWalSenders))
	binary.LittleEndian.PutUint32(b[cfMaxPreparedXactsOffset:], uint32(cf.MaxPreparedXacts))
	binary.LittleEndian.PutUint32(b[cfMaxLocksPerXactOffset:], uint32(cf.MaxLocksPerXact))
	if cf.TrackCommitTimestamp {
		b[cfTrackCommitTimestampOffset] = 1
	}
	binary.LittleEndian.PutUint32(b[cfMaxAlignOffset:], cf.MaxAlign)
	binary.LittleEndian.PutUint64(b[cfFloatFormatOffset:], math.Float64bits(cf.FloatFormat))
	binary.LittleEndian.PutUint32(b[cfBlckszOffset:], cf.Blcksz)
	binary.LittleEndian.PutUint32(b[cfRelsegSizeOffset:], cf.RelsegSize)
	binary.LittleEndian.PutUint32(b[cfXlogBlckszOffset:], cf.XlogBlcksz)
	binary.LittleEndian.PutUint32(b[cfXlogSegSizeOffset:], cf.XlogSegSize)
	binary.LittleEndian.PutUint32(b[cfNameDataLenOffset:], cf.NameDataLen)
	binary.LittleEndian.PutUint32(b[cfIndexMaxKeysOffset:], cf.IndexMaxKeys)
	binary.LittleEndian.PutUint32(b[cfToastMaxChunkSizeOffset:], cf.ToastMaxChunkSize)
	binary.LittleEndian.PutUint32(b[cfLoblksizeOffset:], cf.Loblksize)
	if cf.Float8ByVal {
		b[cfFloat8ByValOffset] = 1
	}
	binary.LittleEndian.PutUint32(b[cfDataChecksumVersionOffset:], cf.DataChecksumVersion)
	copy(b[cfMockAuthNonceOffset:], cf.MockAuthenticationNonce[:])
	binary.LittleEndian.PutUint32(b[ControlFileCrcOffset:], Crc32c(b[:ControlFileCrcOffset]))
	return b
}
