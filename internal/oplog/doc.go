// Package oplog is the durable journal of operations that could not be
// delivered to the store.
//
// The journal is a directory of append-only segment files
// (oplog-00000001.log, ...). Each segment starts with a magic header and
// holds length-prefixed frames: a big-endian length, a CRC32 of the JSON
// payload, and the payload itself. Appends are synced to disk before they
// are acknowledged, and the writer rotates to a new segment at size or
// record-count limits.
//
// The Reader replays segments in filename order. A corrupt or torn frame
// ends its segment and reading continues with the next one, so a crash
// during an append costs at most the torn record. The replay cursor
// (oplog.cursor) records the highest delivered sequence; an interrupted
// replay resumes behind it instead of sending records twice. The
// Compactor deletes segments whose records are all behind the cursor,
// always keeping the newest file for the writer. Journal ties the three
// together for the client.
package oplog
