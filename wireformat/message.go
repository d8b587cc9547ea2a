package wireformat

import (
	"encoding/binary"
	"fmt"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/domain/errors"
)

// Message layouts built from values:
//
//	invoke request   String(method) Array(args)
//	call result      Array(results)
//	signal entry     String(name) Array(params)
//	signal batch     u8 flags | u32 count | count x (u32 length | signal entry)
//
// The batch flags carry FlagDropped when the host discarded signals since
// the previous batch.

// FlagDropped marks a signal batch sent after the host dropped signals.
const FlagDropped byte = 0x01

// BatchHeaderSize is the length of the flags and count preceding batch entries.
const BatchHeaderSize = 5

// CallSize returns the encoded length of an invoke request.
func (c *Codec) CallSize(call entities.Call) (int, error) {
	return c.Size(entities.String(call.Method()), entities.Array(call.Args()))
}

// AppendCall appends an invoke request to dst.
func (c *Codec) AppendCall(dst []byte, call entities.Call) ([]byte, error) {
	return c.AppendAll(dst, entities.String(call.Method()), entities.Array(call.Args()))
}

// DecodeCall decodes an invoke request.
func (c *Codec) DecodeCall(b []byte) (entities.Call, error) {
	method, n, err := c.DecodeValue(b)
	if err != nil {
		return entities.Call{}, err
	}
	name, ok := method.(entities.String)
	if !ok {
		return entities.Call{}, errors.ProtocolViolation("decode call", "method is %s, want string", method.Tag())
	}
	args, err := c.DecodeAll(b[n:])
	if err != nil {
		return entities.Call{}, err
	}
	arr, ok := args.(entities.Array)
	if !ok {
		return entities.Call{}, errors.ProtocolViolation("decode call", "arguments are %s, want array", args.Tag())
	}
	return entities.NewCall(string(name), arr...), nil
}

// AppendResults appends a call result to dst.
func (c *Codec) AppendResults(dst []byte, results []entities.Value) ([]byte, error) {
	return c.Append(dst, entities.Array(results))
}

// DecodeResults decodes a call result: one array spanning all of b.
func (c *Codec) DecodeResults(b []byte) ([]entities.Value, error) {
	v, err := c.DecodeAll(b)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(entities.Array)
	if !ok {
		return nil, errors.ProtocolViolation("decode results", "result is %s, want array", v.Tag())
	}
	return []entities.Value(arr), nil
}

// AppendSignal appends one signal entry, without its length prefix.
func (c *Codec) AppendSignal(dst []byte, s entities.Signal) ([]byte, error) {
	return c.AppendAll(dst, entities.String(s.Name), entities.Array(s.Params))
}

// DecodeSignal decodes one signal entry spanning all of b.
func (c *Codec) DecodeSignal(b []byte) (entities.Signal, error) {
	call, err := c.DecodeCall(b)
	if err != nil {
		return entities.Signal{}, err
	}
	return entities.Signal{Name: call.Method(), Params: call.Args()}, nil
}

// AppendBatchHeader appends the flags and entry count of a signal batch.
func AppendBatchHeader(dst []byte, dropped bool, count int) []byte {
	var flags byte
	if dropped {
		flags |= FlagDropped
	}
	dst = append(dst, flags)
	return binary.LittleEndian.AppendUint32(dst, uint32(count))
}

// AppendBatchEntry appends one length-prefixed, already encoded signal entry.
func AppendBatchEntry(dst, entry []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(entry)))
	return append(dst, entry...)
}

// BatchEntry is one decoded signal of a batch. Err is set when this entry
// alone was malformed.
type BatchEntry struct {
	Err    error
	Signal entities.Signal
}

// Batch is a decoded signal batch.
type Batch struct {
	Entries []BatchEntry
	Dropped bool
}

// DecodeBatch decodes a signal batch. An empty input is an empty batch.
// Broken framing fails the whole batch; a malformed entry only fails that entry.
func (c *Codec) DecodeBatch(b []byte) (Batch, error) {
	if len(b) == 0 {
		return Batch{}, nil
	}
	r := reader{buf: b, maxDepth: c.maxDepth}
	hdr, err := r.take(1)
	if err != nil {
		return Batch{}, err
	}
	if hdr[0]&^FlagDropped != 0 {
		return Batch{}, r.fail("unknown batch flags 0x%02x", hdr[0])
	}
	// every entry carries at least a four-byte length
	n, err := r.count(4)
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{Dropped: hdr[0]&FlagDropped != 0, Entries: make([]BatchEntry, 0, n)}
	for i := 0; i < n; i++ {
		size, err := r.u32()
		if err != nil {
			return Batch{}, err
		}
		raw, err := r.take(int(size))
		if err != nil {
			return Batch{}, err
		}
		sig, err := c.DecodeSignal(raw)
		if err != nil {
			err = fmt.Errorf("signal %d of batch: %w", i, err)
		}
		batch.Entries = append(batch.Entries, BatchEntry{Signal: sig, Err: err})
	}
	if r.remaining() != 0 {
		return Batch{}, r.fail("%d trailing bytes after batch", r.remaining())
	}
	return batch, nil
}

// Log record fields.
const (
	logLevelKey   = "level"
	logMessageKey = "message"
	logAttrsKey   = "attrs"
)

// AppendLog appends a log record as Table{level, message, attrs}.
func (c *Codec) AppendLog(dst []byte, rec entities.LogRecord) ([]byte, error) {
	attrs := rec.Attrs
	if attrs == nil {
		attrs = entities.Table{}
	}
	return c.Append(dst, entities.Table{
		{Key: entities.String(logLevelKey), Value: entities.String(rec.Level)},
		{Key: entities.String(logMessageKey), Value: entities.String(rec.Message)},
		{Key: entities.String(logAttrsKey), Value: attrs},
	})
}

// DecodeLog decodes a log record. Missing attrs decode as an empty table.
func (c *Codec) DecodeLog(b []byte) (entities.LogRecord, error) {
	v, err := c.DecodeAll(b)
	if err != nil {
		return entities.LogRecord{}, err
	}
	tbl, ok := v.(entities.Table)
	if !ok {
		return entities.LogRecord{}, errors.ProtocolViolation("decode log", "record is %s, want table", v.Tag())
	}

	var rec entities.LogRecord
	level, _ := tbl.Field(logLevelKey)
	lv, ok := level.(entities.String)
	if !ok {
		return entities.LogRecord{}, errors.ProtocolViolation("decode log", "level is missing or not a string")
	}
	msg, _ := tbl.Field(logMessageKey)
	mv, ok := msg.(entities.String)
	if !ok {
		return entities.LogRecord{}, errors.ProtocolViolation("decode log", "message is missing or not a string")
	}
	rec.Level, rec.Message = string(lv), string(mv)

	rec.Attrs = entities.Table{}
	if attrs, found := tbl.Field(logAttrsKey); found {
		at, ok := attrs.(entities.Table)
		if !ok {
			return entities.LogRecord{}, errors.ProtocolViolation("decode log", "attrs is %s, want table", attrs.Tag())
		}
		rec.Attrs = at
	}
	return rec, nil
}
