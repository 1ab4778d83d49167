/*-------------------------------------------------------------------------
 *
 * kdb+/q Console - IPC Protocol
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package ipc

import (
	"context"
	"errors"
	"fmt"

	"kdb-q-console/internal/kdb"
)

// WrapperSource is the q lambda every console query is evaluated through.
// It traps evaluation errors, calls a niladic function result, unkeys keyed
// tables and attaches column metadata so the reply always has the shape
// `success`type`keys`meta`data (or `success`error on failure).
const WrapperSource = "{[q] r:@[{(1b;{$[100h=type x;x[];x]} value x)};q;{(0b;x)}];" +
	" if[not first r;:`success`error!(0b;last r)];" +
	" v:last r; k:0;" +
	" if[99h=type v;if[98h=type key v;k:count cols key v;v:0!v]];" +
	" m:$[98h=type v;0!meta v;()];" +
	" `success`type`keys`meta`data!(1b;type v;k;m;v)}"

// Execute evaluates text through the wrapping lambda and returns the
// result envelope. Errors raised by the query become failed envelopes;
// only transport failures are returned as errors.
func (c *Conn) Execute(ctx context.Context, text string) (*kdb.Envelope, error) {
	reply, size, err := c.call(ctx, WrapperSource, kdb.CharVector(text))
	if err != nil {
		var qerr *QError
		if errors.As(err, &qerr) {
			env := kdb.ErrorEnvelope(qerr.Message)
			env.Received = size
			return env, nil
		}
		return nil, err
	}
	env, err := DecodeEnvelope(reply)
	if err != nil {
		return nil, err
	}
	env.Received = size
	return env, nil
}

// DecodeEnvelope converts the wrapper's reply dictionary into an envelope.
// A reply that is not a wrapper dictionary is normalized on the client.
func DecodeEnvelope(reply any) (*kdb.Envelope, error) {
	dict, ok := reply.(*kdb.Dict)
	if !ok {
		return kdb.Normalize(reply), nil
	}
	fields := make(map[string]any)
	for i, key := range kdb.Strings(dict.Keys) {
		fields[key] = kdb.Index(dict.Values, i)
	}
	success, ok := fields["success"].(bool)
	if !ok {
		return kdb.Normalize(reply), nil
	}

	if !success {
		msg, _ := kdb.StringOf(fields["error"])
		return kdb.ErrorEnvelope(msg), nil
	}

	typ, ok := asInt(fields["type"])
	if !ok {
		return nil, fmt.Errorf("%w: envelope type is %T", ErrMalformed, fields["type"])
	}
	keys, _ := asInt(fields["keys"])

	env := &kdb.Envelope{
		Success:        true,
		Type:           kdb.TypeCode(typ),
		KeyColumnCount: int(keys),
	}

	data := fields["data"]
	table, ok := data.(*kdb.Table)
	if !ok {
		env.Value = data
		return env, nil
	}

	env.Columns = metaColumns(fields["meta"])
	if len(env.Columns) != len(table.Columns) {
		env.Columns = kdb.DeriveMeta(table)
	}
	env.Rows = kdb.BuildRows(table)
	return env, nil
}

// metaColumns reads the c, t, f and a columns of an unkeyed meta table.
func metaColumns(v any) []kdb.ColumnMeta {
	meta, ok := v.(*kdb.Table)
	if !ok {
		return nil
	}
	names := kdb.Strings(meta.Column("c"))
	tags := meta.Column("t")
	fkeys := meta.Column("f")
	attrs := meta.Column("a")

	cols := make([]kdb.ColumnMeta, len(names))
	for i, name := range names {
		cols[i] = kdb.ColumnMeta{Name: name, TypeTag: ' '}
		if c, ok := kdb.Index(tags, i).(kdb.Char); ok {
			cols[i].TypeTag = byte(c)
		}
		if s, ok := kdb.Index(fkeys, i).(string); ok {
			cols[i].ForeignKey = s
		}
		if s, ok := kdb.Index(attrs, i).(string); ok {
			cols[i].Attribute = s
		}
	}
	return cols
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}
