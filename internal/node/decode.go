package node

import (
	"errors"
	"fmt"

	"dario.cat/mergo"

	"github.com/shaiso/nodeflow/internal/xjson"
)

// ErrInvalidConfig — конфиг не удалось привести к ожидаемому типу.
var ErrInvalidConfig = errors.New("invalid node config")

// DecodeConfig приводит сырой конфиг к типу C и заполняет нулевые поля из defaults.
//
// Поддерживаются C, *C, map[string]any и любой JSON-совместимый тип.
// nil даёт defaults.
func DecodeConfig[C any](raw any, defaults C) (C, error) {
	var cfg C

	switch v := raw.(type) {
	case nil:
	case C:
		cfg = v
	case *C:
		if v != nil {
			cfg = *v
		}
	default:
		data, err := xjson.Marshal(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := xjson.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if err := mergo.Merge(&cfg, defaults); err != nil {
		return cfg, fmt.Errorf("%w: apply defaults: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}
