package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/nodeflow/internal/node"
	"github.com/shaiso/nodeflow/internal/telemetry"
)

// Ошибки исполнителей.
var (
	// ErrUnknownNodeType — тип ноды не найден в реестре.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrNotANumber — значение нельзя привести к числу.
	ErrNotANumber = errors.New("value is not a number")
)

// decodeConfig приводит конфиг ноды к типу C.
// Ошибка возвращается сразу в виде node.Error с кодом INVALID_CONFIG.
func decodeConfig[C any](nc *node.Context, defaults C) (C, *node.Error) {
	cfg, err := node.DecodeConfig(nc.Config, defaults)
	if err != nil {
		return cfg, node.NewError(node.CodeInvalidConfig, err.Error(), nil, false)
	}
	return cfg, nil
}

// loggerFor возвращает логгер ноды с node_id и node_type.
func loggerFor(ctx context.Context, nc *node.Context) *slog.Logger {
	logger := nc.Logger
	if logger == nil {
		logger = telemetry.FromContext(ctx)
	}
	logger = telemetry.WithNodeID(logger, nc.NodeID)
	return telemetry.WithNodeType(logger, nc.NodeType)
}

// cancelled возвращает ошибку ноды, если context уже отменён.
func cancelled(ctx context.Context, code string) *node.Error {
	if err := ctx.Err(); err != nil {
		return node.NewError(code, "execution cancelled: "+err.Error(), nil, false)
	}
	return nil
}

// millis переводит миллисекунды конфига в time.Duration.
func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// toFloat пытается привести значение к числу.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		return 0, false
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case fmt.Stringer:
		return toFloat(n.String())
	}
	return 0, false
}

// firstDefined возвращает первое не-nil значение по ключам.
func firstDefined(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// firstBySortedKey возвращает первое не-nil значение в порядке сортировки ключей.
func firstBySortedKey(m map[string]any) (any, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] != nil {
			return m[k], true
		}
	}
	return nil, false
}

// boolOr разыменовывает необязательный флаг.
func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
