package mongo

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// MongoDB field names may not contain '.', so dots in context and parameter keys are escaped.
const (
	dotEscape    = "{dot}"
	typeSuffix   = "_TYPE"
	typeBigInt   = "bigint"
	typeBigFloat = "bigfloat"
)

func escapeKey(key string) string {
	return strings.ReplaceAll(key, ".", dotEscape)
}

func unescapeKey(key string) string {
	return strings.ReplaceAll(key, dotEscape, ".")
}

// encodeContext flattens ec into a document keyed by idField.
// Big numbers are stored as decimal text next to a <key>_TYPE marker.
func encodeContext(idField string, id int64, ec model.ExecutionContext) bson.M {
	doc := bson.M{idField: id}
	for k, v := range ec {
		key := escapeKey(k)
		switch n := v.(type) {
		case *big.Int:
			if n == nil {
				doc[key] = nil
				continue
			}
			doc[key] = n.String()
			doc[key+typeSuffix] = typeBigInt
		case *big.Float:
			if n == nil {
				doc[key] = nil
				continue
			}
			doc[key] = n.Text('g', -1)
			doc[key+typeSuffix] = fmt.Sprintf("%s:%d", typeBigFloat, n.Prec())
		default:
			doc[key] = v
		}
	}
	return doc
}

// decodeContext is the inverse of encodeContext. The id field, system fields and type markers
// are not part of the result.
func decodeContext(idField string, doc bson.M) model.ExecutionContext {
	ec := model.NewExecutionContext()
	for k, v := range doc {
		if k == idField || k == fieldID || k == fieldNamespace {
			continue
		}
		if strings.HasSuffix(k, typeSuffix) {
			if _, marksValue := doc[strings.TrimSuffix(k, typeSuffix)]; marksValue {
				continue
			}
		}
		if marker, ok := doc[k+typeSuffix].(string); ok {
			ec[unescapeKey(k)] = decodeBig(k, v, marker)
			continue
		}
		ec[unescapeKey(k)] = normalizeValue(v)
	}
	return ec
}

func decodeBig(key string, v interface{}, marker string) interface{} {
	text, ok := v.(string)
	if !ok {
		return normalizeValue(v)
	}
	kind, precText, _ := strings.Cut(marker, ":")
	switch kind {
	case typeBigInt:
		if n, ok := new(big.Int).SetString(text, 10); ok {
			return n
		}
	case typeBigFloat:
		f := new(big.Float)
		if prec, err := strconv.ParseUint(precText, 10, 32); err == nil && prec > 0 {
			f.SetPrec(uint(prec))
		}
		if parsed, _, err := f.Parse(text, 10); err == nil {
			return parsed
		}
	}
	logger.Warnf("Failed to convert execution context value '%s' to %s; keeping it as text.", unescapeKey(key), marker)
	return text
}

// normalizeValue converts driver-specific types into plain Go values.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time()
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[unescapeKey(k)] = normalizeValue(e)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[unescapeKey(e.Key)] = normalizeValue(e.Value)
		}
		return out
	default:
		return v
	}
}
