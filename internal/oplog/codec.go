package oplog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
)

func encodeFrame(rec *Record) ([]byte, error) {
	if err := rec.validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("oplog: marshal record: %w", err)
	}

	length := uint32(4 + len(payload))
	out := make([]byte, 0, frameHeaderSize+int(length))

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], length)
	out = append(out, header[:]...)

	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(payload))
	out = append(out, crcBuf[:]...)

	return append(out, payload...), nil
}

func decodeFrame(frame []byte) (*Record, error) {
	// Frame body layout: [crc32:4][payload...]
	if len(frame) < minFrameSize {
		return nil, ErrCorruptRecord
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	payload := frame[4:]

	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, ErrChecksumMismatch
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("oplog: unmarshal record: %w", err)
	}
	return &rec, nil
}

// readFrame reads one frame from the stream, returning the record and
// the number of bytes consumed.
func readFrame(br *bufio.Reader) (*Record, int, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return nil, 0, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < minFrameSize || length > maxFrameSize {
		return nil, 0, ErrCorruptRecord
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(br, frame); err != nil {
		return nil, 0, err
	}

	rec, err := decodeFrame(frame)
	if err != nil {
		return nil, 0, err
	}
	return rec, frameHeaderSize + int(length), nil
}
