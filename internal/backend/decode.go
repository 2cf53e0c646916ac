package backend

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// decode maps generic JSON values onto out using the json struct tags.
// Strings holding numbers or booleans are accepted and null becomes the
// zero value.
func decode(op string, in, out any) error {
	if in == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return &TransientError{Op: op, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	return nil
}

// unwrapList returns the list in v. Bare arrays are returned as-is; objects
// are searched for the first of keys that holds an array.
func unwrapList(v any, keys ...string) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, k := range keys {
			if list, ok := t[k].([]any); ok {
				return list
			}
		}
	}
	return nil
}

// decodeList decodes every element of list independently. Elements that
// are not objects are skipped.
func decodeList[T any](op string, list []any) ([]T, error) {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if _, ok := item.(map[string]any); !ok {
			continue
		}
		var v T
		if err := decode(op, item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
