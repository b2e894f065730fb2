package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{"empty map", map[string]string{}, BaseKey},
		{"nil map", nil, BaseKey},
		{"single", map[string]string{"Color": "Rojo"}, "Color:Rojo"},
		{"sorted by name", map[string]string{"Tamaño": "A4", "Color": "Rojo"}, "Color:Rojo|Tamaño:A4"},
		{"capitalizes names", map[string]string{"color": "Rojo", "sucursal": "La Paz"}, "Color:Rojo|Sucursal:La Paz"},
		{"folds name case", map[string]string{"COLOR": "Rojo", "tAMAÑO": "A4"}, "Color:Rojo|Tamaño:A4"},
		{"strips separators from names", map[string]string{"Col|or:": "Rojo", "Ta=maño": "A4"}, "Color:Rojo|Tamaño:A4"},
		{"replaces bar in values", map[string]string{"Nota": "a|b"}, "Nota:a/b"},
		{"trims values", map[string]string{" Color ": "  Rojo "}, "Color:Rojo"},
		{"drops blank values", map[string]string{"Color": "  ", "Tamaño": "A3"}, "Tamaño:A3"},
		{"only blank values", map[string]string{"Color": ""}, BaseKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.attrs))
		})
	}
}

func TestEncodeIsOrderIndependent(t *testing.T) {
	a := map[string]string{}
	a["A"] = "x"
	a["B"] = "y"

	b := map[string]string{}
	b["B"] = "y"
	b["A"] = "x"

	assert.Equal(t, Encode(a), Encode(b))
	assert.Equal(t, Encode(map[string]string{"color": "Rojo"}), Encode(map[string]string{"Color": "Rojo"}))
	assert.Equal(t, Encode(map[string]string{"COLOR": "Rojo"}), Encode(map[string]string{"color": "Rojo"}))
}

func TestEncodeCollapsesDuplicateNamesDeterministically(t *testing.T) {
	attrs := map[string]string{"color": "rojo", "Color": "Azul"}
	for range 20 {
		require.Equal(t, "Color:Azul", Encode(attrs))
	}

	attrs = map[string]string{"COLOR": "Rojo", "color": "Azul"}
	for range 20 {
		require.Equal(t, "Color:Rojo", Encode(attrs), "one dimension per folded name")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		want    map[string]string
	}{
		{"base sentinel", BaseKey, map[string]string{}},
		{"empty", "", map[string]string{}},
		{"canonical", "Color:Rojo|Tamaño:A4", map[string]string{"Color": "Rojo", "Tamaño": "A4"}},
		{"legacy equals", "Color=Rojo|Tamaño=A4", map[string]string{"Color": "Rojo", "Tamaño": "A4"}},
		{"mixed separators", "Color=Rojo|Tamaño:A4", map[string]string{"Color": "Rojo", "Tamaño": "A4"}},
		{"splits on first colon", "Color:Blanco:#ffffff", map[string]string{"Color": "Blanco:#ffffff"}},
		{"trims both sides", " Color : Rojo | Sucursal :La Paz ", map[string]string{"Color": "Rojo", "Sucursal": "La Paz"}},
		{"skips malformed", "Color|:Rojo|Tamaño:|Sucursal:La Paz||", map[string]string{"Sucursal": "La Paz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.encoded))
		})
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []map[string]string{
		{"Color": "Rojo"},
		{"Color": "Blanco:#ffffff", "Tamaño": "11 Oz", "Sucursal": "Santa Cruz"},
		{"Acabado": "Mate", "Grosor": "3 mm", "Material": "Vinil adhesivo"},
	}

	for _, attrs := range cases {
		assert.Equal(t, attrs, Decode(Encode(attrs)))
	}
}

func TestDecodeEncodeKeepsSeparatorsOutOfValues(t *testing.T) {
	got := Decode(Encode(map[string]string{"Nota": "a|b", "Color": "Blanco:#ffffff", "Medida": "a=b"}))
	assert.Equal(t, map[string]string{"Nota": "a/b", "Color": "Blanco:#ffffff", "Medida": "a=b"}, got)
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "Color:Rojo|Tamaño:A4", "Color:Rojo|Tamaño:A4", true},
		{"order", "Tamaño:A4|Color:Rojo", "Color:Rojo|Tamaño:A4", true},
		{"case", "color:rojo|TAMAÑO:a4", "Color:Rojo|Tamaño:A4", true},
		{"legacy separator", "Color=Rojo", "Color:Rojo", true},
		{"color code", "Color:Blanco:#FFFFFF", "Color:blanco", true},
		{"color code with space", "Color:Blanco #ffffff", "Color:Blanco", true},
		{"different value", "Color:Rojo", "Color:Azul", false},
		{"missing dimension", "Color:Rojo", "Color:Rojo|Sucursal:La Paz", false},
		{"both base", BaseKey, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equivalent(tt.a, tt.b))
			assert.Equal(t, tt.want, Equivalent(tt.b, tt.a))
		})
	}
}

func TestStripColorCode(t *testing.T) {
	tests := map[string]string{
		"Blanco:#ffffff":  "Blanco",
		"Negro: #000000 ": "Negro",
		"Azul #1A2B3C":    "Azul",
		"Rojo":            "Rojo",
		"#ffffff":         "#ffffff",
		"Gris:#fff":       "Gris:#fff",
	}
	for input, want := range tests {
		assert.Equal(t, want, StripColorCode(input), "input %q", input)
	}
}

func TestKeyHelpers(t *testing.T) {
	key := ParseKey("sucursal=La Paz|color:Rojo")
	require.Equal(t, "Color:Rojo|Sucursal:La Paz", key.String())

	value, ok := key.Get("SUCURSAL")
	require.True(t, ok)
	assert.Equal(t, "La Paz", value)

	assert.Equal(t, "Color:Rojo", key.Without(BranchAttribute).String())
	assert.Equal(t, "Color:Rojo|Sucursal:Santa Cruz", key.With("sucursal", "Santa Cruz").String())
	assert.Equal(t, "Color:Rojo|Sucursal:La Paz", key.String(), "With must not mutate the receiver")
}
