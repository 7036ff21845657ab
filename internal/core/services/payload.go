package services

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// maxPayloadDepth bounds the walk in jsonSafe so cyclic values terminate.
const maxPayloadDepth = 64

// encodePayload marshals data for storage. Values JSON has no encoding for
// are dropped: functions, channels, complex numbers and unsafe pointers are
// omitted from objects and become null in arrays, and NaN or infinite floats
// become null. The boolean reports whether anything was dropped.
func encodePayload(data any) (json.RawMessage, bool, error) {
	raw, err := json.Marshal(data)
	if err == nil {
		return raw, false, nil
	}

	safe, ok := jsonSafe(reflect.ValueOf(data), 0)
	if !ok {
		return json.RawMessage(`null`), true, nil
	}
	raw, err = json.Marshal(safe)
	if err != nil {
		return nil, true, err
	}
	return raw, true, nil
}

// jsonSafe rebuilds v from values json.Marshal accepts.
// It returns false when v itself has no JSON form.
func jsonSafe(v reflect.Value, depth int) (any, bool) {
	if !v.IsValid() {
		return nil, true
	}
	if depth > maxPayloadDepth {
		return nil, false
	}
	if v.CanInterface() {
		if raw, err := json.Marshal(v.Interface()); err == nil {
			return json.RawMessage(raw), true
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), true
	case reflect.String:
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), true

	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, false

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, true
		}
		return f, true

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return jsonSafe(v.Elem(), depth+1)

	case reflect.Map:
		if v.IsNil() {
			return nil, true
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, ok := mapKey(iter.Key())
			if !ok {
				return nil, false
			}
			if val, ok := jsonSafe(iter.Value(), depth+1); ok {
				out[key] = val
			}
		}
		return out, true

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, true
		}
		out := make([]any, v.Len())
		for i := range out {
			if val, ok := jsonSafe(v.Index(i), depth+1); ok {
				out[i] = val
			}
		}
		return out, true

	case reflect.Struct:
		var obj jsonObject
		appendFields(&obj, v, depth)
		return obj, true
	}

	return nil, false
}

func mapKey(k reflect.Value) (string, bool) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

// appendFields adds the exported fields of struct v the way encoding/json
// names them. Untagged embedded structs are flattened.
func appendFields(obj *jsonObject, v reflect.Value, depth int) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		fv := v.Field(i)
		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				ft, fv = ft.Elem(), fv.Elem()
			}
			if ft.Kind() == reflect.Struct {
				appendFields(obj, fv, depth+1)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if strings.Contains(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		if val, ok := jsonSafe(fv, depth+1); ok {
			obj.set(name, val)
		}
	}
}

// isEmptyValue matches the omitempty rule of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

type jsonField struct {
	name  string
	value any
}

// jsonObject is a JSON object that keeps struct field order.
type jsonObject []jsonField

// set adds a field unless one with the same name is already present.
func (o *jsonObject) set(name string, value any) {
	for _, f := range *o {
		if f.name == name {
			return
		}
	}
	*o = append(*o, jsonField{name: name, value: value})
}

func (o jsonObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
