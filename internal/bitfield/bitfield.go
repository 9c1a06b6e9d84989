// Package bitfield packs annotated struct fields into a single integer,
// modeled loosely on golang.org/x/text/internal/gen/bitfield. It is used
// wherever this kernel needs to build a hardware-defined flag word (a page
// table entry, a GDT access byte) from named, typed fields instead of
// juggling shift-and-OR expressions by hand at every call site.
package bitfield

import (
	"fmt"
	"reflect"
)

// Config determines settings for packing.
type Config struct {
	// NumBits fixes the maximum allowed bits for the integer representation.
	NumBits uint
}

// Pack packs annotated bit ranges of struct x into an integer.
// Only fields with a "bitfield" struct tag of the form ",N" are packed,
// in field declaration order, least-significant field first.
func Pack(x interface{}, c *Config) (packed uint64, err error) {
	if c == nil {
		c = &Config{NumBits: 64}
	}

	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("bitfield.Pack: expected struct, got %v", v.Kind())
	}

	t := v.Type()
	var bitOffset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("bitfield")
		if tag == "" {
			continue
		}

		var bits uint
		if _, err := fmt.Sscanf(tag, ",%d", &bits); err != nil {
			return 0, fmt.Errorf("bitfield.Pack: invalid bitfield tag %q on field %s", tag, field.Name)
		}
		if bits == 0 {
			continue
		}

		fieldValue := v.Field(i)
		var fieldBits uint64

		switch fieldValue.Kind() {
		case reflect.Bool:
			if fieldValue.Bool() {
				fieldBits = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fieldBits = fieldValue.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			val := fieldValue.Int()
			if val < 0 {
				return 0, fmt.Errorf("bitfield.Pack: negative value %d for field %s", val, field.Name)
			}
			fieldBits = uint64(val)
		default:
			return 0, fmt.Errorf("bitfield.Pack: unsupported field type %v for field %s", fieldValue.Kind(), field.Name)
		}

		maxValue := uint64((1 << bits) - 1)
		if fieldBits > maxValue {
			return 0, fmt.Errorf("bitfield.Pack: value %d exceeds %d bits for field %s", fieldBits, bits, field.Name)
		}

		packed |= fieldBits << bitOffset
		bitOffset += bits
	}

	if c.NumBits > 0 && bitOffset > c.NumBits {
		return 0, fmt.Errorf("bitfield.Pack: total bits %d exceeds NumBits %d", bitOffset, c.NumBits)
	}

	return packed, nil
}
