package pylit

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Format renders v as a literal in the wire grammar.
//
// Collections are rendered without any internal whitespace so the result stays
// a single token in a space-delimited command line. Map entries are rendered
// in a deterministic key order. Supported inputs are nil, booleans, strings,
// all integer and float types, and any slice, array or map built from them;
// unsupported types panic, since they indicate a programming error at the
// call site rather than a runtime condition.
func Format(v any) string {
	var sb strings.Builder
	formatValue(&sb, reflect.ValueOf(v))
	return sb.String()
}

func formatValue(sb *strings.Builder, rv reflect.Value) {
	if !rv.IsValid() {
		sb.WriteString("None")
		return
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			sb.WriteString("None")
			return
		}
		formatValue(sb, rv.Elem())

	case reflect.Bool:
		if rv.Bool() {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		sb.WriteString(FormatFloat(rv.Float()))

	case reflect.String:
		formatString(sb, rv.String())

	case reflect.Slice, reflect.Array:
		sb.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			formatValue(sb, rv.Index(i))
		}
		sb.WriteByte(']')

	case reflect.Map:
		formatMap(sb, rv)

	default:
		panic(fmt.Sprintf("pylit: cannot format value of type %s", rv.Type()))
	}
}

// FormatFloat renders f the way python's str() does: the shortest decimal
// representation, with a ".0" appended when the result would otherwise read
// as an integer. This keeps Parse(Format(f)) returning a float64.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, "IN") { // Inf/NaN pass through
		s += ".0"
	}
	return s
}

func formatString(sb *strings.Builder, s string) {
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
}

func formatMap(sb *strings.Builder, rv reflect.Value) {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		formatValue(sb, k)
		sb.WriteByte(':')
		formatValue(sb, rv.MapIndex(k))
	}
	sb.WriteByte('}')
}

// lessKey orders map keys for deterministic rendering: numerics before
// strings, numerics by value, strings lexicographically.
func lessKey(a, b reflect.Value) bool {
	for a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	for b.Kind() == reflect.Interface {
		b = b.Elem()
	}

	ka, na := keyRank(a)
	kb, nb := keyRank(b)
	if ka != kb {
		return ka < kb
	}
	if ka == 0 {
		return na < nb
	}
	return a.String() < b.String()
}

// keyRank classifies a key as numeric (rank 0, with its value) or not (rank 1).
func keyRank(v reflect.Value) (int, float64) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return 0, float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return 0, float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return 0, v.Float()
	case reflect.Bool:
		if v.Bool() {
			return 0, 1
		}
		return 0, 0
	default:
		return 1, 0
	}
}
