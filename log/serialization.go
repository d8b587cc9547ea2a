package log

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ocwasm/ocsafe/domain/entities"
	"github.com/ocwasm/ocsafe/wireformat"
)

// appendAttr appends attr to dst, qualifying its key with the open groups.
// Empty attributes are skipped as slog requires.
func appendAttr(dst entities.Table, groups []string, attr slog.Attr) entities.Table {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup && attr.Key == "" {
		for _, a := range attr.Value.Group() {
			dst = appendAttr(dst, groups, a)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(dst, entities.Entry{Key: entities.String(key), Value: toValue(attr.Value)})
}

// toValue converts a resolved slog.Value to a wire value.
func toValue(v slog.Value) entities.Value {
	switch v.Kind() {
	case slog.KindString:
		return entities.String(v.String())
	case slog.KindInt64:
		return entities.Int(v.Int64())
	case slog.KindUint64:
		if u := v.Uint64(); u <= 1<<63-1 {
			return entities.Int(int64(u))
		}
		return entities.String(v.String())
	case slog.KindBool:
		return entities.Bool(v.Bool())
	case slog.KindFloat64:
		return entities.Float(v.Float64())
	case slog.KindTime:
		return entities.String(v.Time().Format(time.RFC3339Nano))
	case slog.KindDuration:
		return entities.String(v.Duration().String())
	case slog.KindGroup:
		group := v.Group()
		tbl := make(entities.Table, 0, len(group))
		for _, a := range group {
			tbl = appendAttr(tbl, nil, a)
		}
		return tbl
	case slog.KindLogValuer:
		return toValue(v.Resolve())
	}

	switch a := v.Any().(type) {
	case nil:
		return entities.Null{}
	case error:
		return entities.String(a.Error())
	case entities.Value:
		return a
	}
	if wv, err := wireformat.ValueOf(v.Any()); err == nil {
		return wv
	}
	return entities.String(v.String())
}
