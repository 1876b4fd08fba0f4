package codec

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies v into out, which must be a pointer to a struct, map or
// slice. Scalars are converted weakly, so "123" fills an int64 field and
// "true" fills a bool. Struct fields are matched by their mapstructure tag
// or case-insensitively by name; the discriminator is available as "type".
func Decode(v Value, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	if err := dec.Decode(v.Interface()); err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	return nil
}
