package prefs

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

// Normalize coerces any preference blob into a valid Preferences value.
//
// raw may be nil, a Preferences value, a decoded JSON object, JSON text, or a
// JSON string holding JSON text (a column written double-encoded). Anything
// that does not decode to an object yields Defaults. Each field is checked on
// its own, so one bad field never discards the others. Only the three known
// keys are read.
func Normalize(raw any) Preferences {
	out := Defaults()

	doc, ok := objectBytes(raw)
	if !ok {
		return out
	}

	// A repeated key keeps its last value, as JSON.parse does.
	var accent, density, radius gjson.Result
	gjson.ParseBytes(doc).ForEach(func(key, value gjson.Result) bool {
		switch key.Str {
		case "accent":
			accent = value
		case "density":
			density = value
		case "radius":
			radius = value
		}
		return true
	})

	if accent.Type == gjson.String {
		if a, ok := ParseAccent(accent.Str); ok {
			out.Accent = a
		}
	}
	if density.Type == gjson.String {
		if d, ok := ParseDensity(density.Str); ok {
			out.Density = d
		}
	}
	if radius.Type == gjson.String {
		if r, ok := ParseRadius(radius.Str); ok {
			out.Radius = r
		}
	}
	return out
}

func objectBytes(raw any) ([]byte, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case Preferences:
		return v.JSON(), true
	case *Preferences:
		if v == nil {
			return nil, false
		}
		return v.JSON(), true
	case string:
		return textObject([]byte(v), true)
	case []byte:
		return textObject(v, true)
	case json.RawMessage:
		return textObject(v, true)
	case datatypes.JSON:
		return textObject(v, true)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return textObject(b, false)
	}
}

// textObject returns b when it is a JSON object. When unwrap is set, a JSON
// string whose content is an object is unwrapped once.
func textObject(b []byte, unwrap bool) ([]byte, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || !gjson.ValidBytes(b) {
		return nil, false
	}
	res := gjson.ParseBytes(b)
	if res.IsObject() {
		return b, true
	}
	if unwrap && res.Type == gjson.String {
		return textObject([]byte(res.Str), false)
	}
	return nil, false
}
