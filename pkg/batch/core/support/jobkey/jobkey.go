// Package jobkey computes the fingerprint that identifies a job instance among instances with the same name.
package jobkey

import (
	"crypto/md5"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// ComputeKey returns the lowercase hex MD5 of "name=value;" pairs sorted by name.
// The result does not depend on map iteration order.
func ComputeKey(params model.JobParameters) string {
	var sb strings.Builder
	for _, name := range params.Names() {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(FormatValue(params.Params[name]))
		sb.WriteByte(';')
	}
	sum := md5.Sum([]byte(sb.String()))
	return fmt.Sprintf("%032x", sum)
}

// FormatValue renders a parameter value canonically. Times become Unix milliseconds.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return strconv.FormatInt(val.UnixMilli(), 10)
	case *time.Time:
		if val == nil {
			return ""
		}
		return strconv.FormatInt(val.UnixMilli(), 10)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case *big.Int:
		return val.String()
	case *big.Float:
		return val.Text('g', -1)
	default:
		return fmt.Sprintf("%v", val)
	}
}
