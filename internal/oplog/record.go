package oplog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/syncmesh-go/pkg/datatype"
)

// File format constants.
const (
	FilePrefix    = "oplog-"
	FileExtension = ".log"
	MagicBytes    = "SYNCMOPL\x01"

	DefaultFilePerm = 0o600
	DefaultDirPerm  = 0o700
)

// Frame layout: [length:4][crc32:4][payload]. The length counts the crc
// and the payload.
const (
	frameHeaderSize = 4
	minFrameSize    = 5

	// maxFrameSize rejects lengths no sane record can reach, so a
	// corrupt length field cannot trigger a giant allocation.
	maxFrameSize = 16 << 20
)

// Errors for journal operations.
var (
	ErrCorruptRecord    = errors.New("oplog: corrupt record")
	ErrChecksumMismatch = errors.New("oplog: checksum mismatch")
	ErrInvalidRecord    = errors.New("oplog: invalid record")
	ErrWriterClosed     = errors.New("oplog: writer is closed")

	errInvalidMagic = errors.New("oplog: invalid magic bytes")
)

// Record is one journalled operation.
//
// The op payload is kept as raw JSON: replay hands it back to the store
// verbatim, so the journal never needs to reconstruct typed deltas.
type Record struct {
	Seq        uint64         `json:"seq"`
	Timestamp  int64          `json:"ts"`
	BucketType string         `json:"bucket_type"`
	Bucket     string         `json:"bucket"`
	Key        string         `json:"key"`
	TypeName   string         `json:"type"`
	Op         datatype.RawOp `json:"op"`
	Context    string         `json:"context,omitempty"`
}

// NewRecord freezes an undeliverable update into a journal record. The
// sequence number is assigned by the writer on append.
func NewRecord(bucketType, bucket, key, typeName string, op datatype.Op, context string) (Record, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return Record{}, fmt.Errorf("oplog: marshal op: %w", err)
	}
	return Record{
		Timestamp:  time.Now().UnixMilli(),
		BucketType: bucketType,
		Bucket:     bucket,
		Key:        key,
		TypeName:   typeName,
		Op:         datatype.RawOp(payload),
		Context:    context,
	}, nil
}

func (r *Record) validate() error {
	if r.BucketType == "" || r.Bucket == "" || r.Key == "" || r.TypeName == "" {
		return ErrInvalidRecord
	}
	if len(r.Op) == 0 {
		return ErrInvalidRecord
	}
	return nil
}
