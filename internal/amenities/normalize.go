// Package amenities ingests GeoJSON amenity features into the spatial store
// and exposes the proximity and statistics read surface over them.
package amenities

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawFeature is a loosely-typed GeoJSON feature as received from callers.
// Geometry and properties are validated and coerced during normalization;
// nothing is trusted at this stage.
type RawFeature struct {
	Type       string                 `json:"type"`
	Geometry   *RawGeometry           `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type RawGeometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// Feature is a normalized amenity feature ready for keying and storage.
type Feature struct {
	GeometryType string
	Coordinates  interface{}
	Properties   map[string]interface{}
	AmenityType  string
	Name         string
	// Lon/Lat are set only for point features.
	Lon, Lat float64
}

func (f *Feature) IsPoint() bool { return f.GeometryType == "Point" }

// Property keys with declared coercion targets. Everything else passes
// through untouched.
var (
	stringKeys = map[string]struct{}{
		"name": {}, "Name": {}, "NAME": {}, "Description": {}, "CLASS": {},
		"UNIQUEID": {}, "STN_NAME": {}, "STATION": {}, "HCI_NAME": {},
		"FACILITY": {}, "BLDG_NAME": {}, "POI_NAME": {},
	}
	intKeys         = map[string]struct{}{"OBJECTID": {}}
	optionalStrKeys = map[string]struct{}{"ADDITIONAL_INFO": {}}
)

// nameCandidates is scanned in order; the first non-empty value becomes the
// canonical name.
var nameCandidates = []string{
	"name", "Name", "NAME", "STN_NAME", "STATION", "HCI_NAME",
	"FACILITY", "BLDG_NAME", "POI_NAME",
}

// DetectAmenityType infers a category from a source label (typically the
// originating file name) by keyword match.
func DetectAmenityType(sourceLabel string) string {
	label := strings.ToLower(sourceLabel)
	switch {
	case strings.Contains(label, "mrt"):
		return "MRT"
	case strings.Contains(label, "clinic"), strings.Contains(label, "chas"):
		return "CLINIC"
	case strings.Contains(label, "school"):
		return "SCHOOL_ZONE"
	case strings.Contains(label, "park"):
		return "PARK"
	case strings.Contains(label, "supermarket"):
		return "SUPERMARKET"
	default:
		return "OTHER"
	}
}

// Normalize coerces a raw feature into its storable form. It returns nil for
// features that must be dropped: wrong type, missing geometry type or
// coordinates, or a point without two numeric coordinates.
func Normalize(raw RawFeature, defaultType, defaultName string) *Feature {
	if raw.Type != "Feature" {
		return nil
	}
	if raw.Geometry == nil || raw.Geometry.Type == "" || raw.Geometry.Coordinates == nil {
		return nil
	}

	props := raw.Properties
	if props == nil {
		props = map[string]interface{}{}
	}
	for k, v := range props {
		if _, ok := stringKeys[k]; ok {
			props[k] = toString(v)
		} else if _, ok := intKeys[k]; ok {
			if iv, ok := toInt(v); ok {
				props[k] = iv
			} else {
				props[k] = toString(v)
			}
		} else if _, ok := optionalStrKeys[k]; ok {
			if v == nil {
				props[k] = ""
			} else {
				props[k] = toString(v)
			}
		}
	}

	aType := defaultType
	if explicit, ok := props["amenity_type"]; ok && toString(explicit) != "" {
		// An explicit amenity_type always beats source-label inference.
		aType = toString(explicit)
	}
	aType = strings.TrimSpace(strings.ToUpper(aType))
	if aType == "" {
		aType = "OTHER"
	}
	props["amenity_type"] = aType

	name := defaultName
	for _, k := range nameCandidates {
		if v, ok := props[k]; ok {
			if s := strings.TrimSpace(toString(v)); s != "" {
				name = s
				break
			}
		}
	}
	if name == "" {
		name = defaultName
	}
	props["name"] = name

	f := &Feature{
		GeometryType: raw.Geometry.Type,
		Coordinates:  coerceCoords(raw.Geometry.Coordinates),
		Properties:   props,
		AmenityType:  aType,
		Name:         name,
	}

	if f.GeometryType == "Point" {
		lon, lat, ok := pointCoords(f.Coordinates)
		if !ok {
			return nil
		}
		f.Lon, f.Lat = lon, lat
	}
	return f
}

// coerceCoords recursively converts coordinate values to float64 where
// possible, leaving unconvertible values in place.
func coerceCoords(v interface{}) interface{} {
	switch x := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = coerceCoords(item)
		}
		return out
	case float64:
		return x
	case int:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x
	case string:
		if f, ok := parseFloat(x); ok {
			return f
		}
		return x
	default:
		return v
	}
}

func pointCoords(coords interface{}) (lon, lat float64, ok bool) {
	list, isList := coords.([]interface{})
	if !isList || len(list) < 2 {
		return 0, 0, false
	}
	lon, okLon := list[0].(float64)
	lat, okLat := list[1].(float64)
	if !okLon || !okLat {
		return 0, 0, false
	}
	return lon, lat, true
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}

func toInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return x, true
	case float64:
		return int(x + 0.5*signOf(x)), true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return int(f + 0.5*signOf(f)), true
		}
		return 0, false
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		s = strings.TrimPrefix(s, "+")
		if f, ok := parseFloat(s); ok {
			return int(f + 0.5*signOf(f)), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func signOf(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
