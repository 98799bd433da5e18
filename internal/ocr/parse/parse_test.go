package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paythru/internal/ocr/blocks"
	"paythru/internal/ocr/matcher"
	"paythru/internal/ocr/models"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"day first slashes", "15/03/2020", "2020-03-15", true},
		{"iso", "2020-03-15", "2020-03-15", true},
		{"day first dashes", "15-03-2020", "2020-03-15", true},
		{"year first slashes", "2020/03/15", "2020-03-15", true},
		{"single digit parts are padded", "5/3/2020", "2020-03-05", true},
		{"spanish textual", "15 de marzo de 2020", "2020-03-15", true},
		{"textual without de", "15 marzo 2020", "2020-03-15", true},
		{"upper case with accents and punctuation", "1 DE ENERO, 1999.", "1999-01-01", true},
		{"setiembre spelling", "7 de setiembre de 2001", "2001-09-07", true},
		{"embedded in label text", "Fecha de inicio: 02/01/2010", "2010-01-02", true},
		{"unknown month", "15 de marzoo de 2020", "", false},
		{"english month", "15 march 2020", "", false},
		{"not a date", "not a date", "", false},
		{"blank", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_EquivalentFormats(t *testing.T) {
	a, _ := ParseDate("15/03/2020")
	b, _ := ParseDate("2020-03-15")
	c, _ := ParseDate("15 de marzo de 2020")

	assert.Equal(t, "2020-03-15", a)
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestParseAddress(t *testing.T) {
	t.Run("positional segments", func(t *testing.T) {
		addr := ParseAddress("Calle Reforma 123, Centro, CDMX, CDMX, 06000")
		require.NotNil(t, addr)

		assert.Equal(t, "Calle Reforma 123", addr.Direccion)
		assert.Equal(t, "Centro", addr.Colonia)
		assert.Equal(t, "CDMX", addr.Ciudad)
		assert.Equal(t, "CDMX", addr.Estado)
		assert.Equal(t, models.Country, addr.Pais)
		assert.Equal(t, "06000", addr.CodigoPostal)
	})

	t.Run("newlines separate and blank segments are dropped", func(t *testing.T) {
		addr := ParseAddress("Av. Juárez 10\n\n , Guadalajara\nC.P. 44100")
		require.NotNil(t, addr)

		assert.Equal(t, "Av. Juárez 10", addr.Direccion)
		assert.Equal(t, "Guadalajara", addr.Colonia)
		assert.Equal(t, "C.P. 44100", addr.Ciudad)
		assert.Empty(t, addr.Estado)
		assert.Equal(t, "44100", addr.CodigoPostal)
	})

	t.Run("postal code only from last segment", func(t *testing.T) {
		addr := ParseAddress("Calle 12345, Centro")
		require.NotNil(t, addr)
		assert.Empty(t, addr.CodigoPostal)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, ParseAddress(""))
		assert.Nil(t, ParseAddress("  \n "))
	})
}

func entriesOf(pairs ...blocks.Pair) matcher.Entries {
	return matcher.Normalize(blocks.NewKeyValueMap(pairs...))
}

func TestBuildAddressFromCSF(t *testing.T) {
	t.Run("full domicile section", func(t *testing.T) {
		entries := entriesOf(
			blocks.Pair{Key: "Código Postal:", Value: "06600"},
			blocks.Pair{Key: "Tipo de Vialidad:", Value: "AVENIDA"},
			blocks.Pair{Key: "Nombre de Vialidad:", Value: "PASEO DE LA REFORMA"},
			blocks.Pair{Key: "Número Exterior:", Value: "222"},
			blocks.Pair{Key: "Número Interior:", Value: "PISO 3"},
			blocks.Pair{Key: "Nombre de la Colonia:", Value: "JUAREZ"},
			blocks.Pair{Key: "Nombre de la Localidad:", Value: "CIUDAD DE MEXICO"},
			blocks.Pair{Key: "Nombre del Municipio o Demarcación Territorial:", Value: "CUAUHTEMOC"},
			blocks.Pair{Key: "Nombre de la Entidad Federativa:", Value: "CIUDAD DE MEXICO"},
			blocks.Pair{Key: "Entre Calle:", Value: "HAMBURGO"},
			blocks.Pair{Key: "Y Calle:", Value: "LIVERPOOL"},
		)

		addr := BuildAddressFromCSF(entries)
		require.NotNil(t, addr)

		assert.Equal(t, "AVENIDA PASEO DE LA REFORMA, #222, Int PISO 3, Entre HAMBURGO y LIVERPOOL", addr.Direccion)
		assert.Equal(t, "JUAREZ", addr.Colonia)
		assert.Equal(t, "CIUDAD DE MEXICO", addr.Ciudad)
		assert.Equal(t, "CIUDAD DE MEXICO", addr.Estado)
		assert.Equal(t, "06600", addr.CodigoPostal)
		assert.Equal(t, models.Country, addr.Pais)
	})

	t.Run("municipality when locality is absent", func(t *testing.T) {
		addr := BuildAddressFromCSF(entriesOf(
			blocks.Pair{Key: "Nombre del Municipio o Demarcación Territorial", Value: "ZAPOPAN"},
		))
		require.NotNil(t, addr)
		assert.Equal(t, "ZAPOPAN", addr.Ciudad)
		assert.Empty(t, addr.Direccion)
	})

	t.Run("single cross street", func(t *testing.T) {
		between := BuildAddressFromCSF(entriesOf(blocks.Pair{Key: "Entre Calle", Value: "MADERO"}))
		require.NotNil(t, between)
		assert.Equal(t, "Entre MADERO", between.Direccion)

		near := BuildAddressFromCSF(entriesOf(blocks.Pair{Key: "Y Calle", Value: "BOLIVAR"}))
		require.NotNil(t, near)
		assert.Equal(t, "Cerca de BOLIVAR", near.Direccion)
	})

	t.Run("postal code recovered from label text", func(t *testing.T) {
		addr := BuildAddressFromCSF(entriesOf(
			blocks.Pair{Key: "Código Postal 44100", Value: "Tipo de Vialidad"},
		))
		require.NotNil(t, addr)
		assert.Equal(t, "44100", addr.CodigoPostal)

		addr = BuildAddressFromCSF(entriesOf(
			blocks.Pair{Key: "Nombre de la Colonia", Value: "CENTRO"},
		))
		require.NotNil(t, addr)
		assert.Empty(t, addr.CodigoPostal)
	})

	t.Run("nil when no domicile label is present", func(t *testing.T) {
		entries := entriesOf(
			blocks.Pair{Key: "RFC", Value: "ABC010101AB1"},
			blocks.Pair{Key: "Nombre (s)", Value: "JUAN"},
		)
		assert.Nil(t, BuildAddressFromCSF(entries))
		assert.Nil(t, BuildAddressFromCSF(nil))
	})
}

func TestParseIdentifiers(t *testing.T) {
	t.Run("finds both codes in free text", func(t *testing.T) {
		transcript := "INSTITUTO NACIONAL ELECTORAL\nCURP GOMJ800101HDFRRN09\nRFC: GOMJ800101AB1"
		ids := ParseIdentifiers(transcript)

		assert.Equal(t, "GOMJ800101HDFRRN09", ids.CURP)
		assert.Equal(t, "GOMJ800101AB1", ids.RFC)
	})

	t.Run("legal entity rfc with ampersand", func(t *testing.T) {
		ids := ParseIdentifiers("Registro Federal de Contribuyentes A&B010203XY9")
		assert.Equal(t, "A&B010203XY9", ids.RFC)
		assert.Empty(t, ids.CURP)
	})

	t.Run("case insensitive", func(t *testing.T) {
		ids := ParseIdentifiers("curp gomj800101hdfrrn09")
		assert.Equal(t, "gomj800101hdfrrn09", ids.CURP)
	})

	t.Run("curp alone does not produce an rfc", func(t *testing.T) {
		ids := ParseIdentifiers("GOMJ800101HDFRRN09")
		assert.Empty(t, ids.RFC)
	})

	t.Run("nothing found", func(t *testing.T) {
		assert.Equal(t, Identifiers{}, ParseIdentifiers("ESTADOS UNIDOS MEXICANOS"))
	})
}
