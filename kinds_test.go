package astroschema

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/astroschema/internal/fixtures"
	"github.com/lychee-technology/astroschema/jsontree"
)

func TestKindTitles(t *testing.T) {
	for _, k := range Kinds() {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)

		typ, err := k.StructType()
		require.NoError(t, err)
		assert.Equal(t, k.String(), typ.Title())

		again, err := k.StructType()
		require.NoError(t, err)
		assert.Same(t, typ, again)
	}

	_, ok := ParseKind("galaxy")
	assert.False(t, ok)
	assert.Equal(t, "Kind(42)", Kind(42).String())

	_, err := Kind(42).StructType()
	assert.True(t, IsSchemaNotFoundError(err))
}

func TestPhotometry(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		valid  bool
	}{
		{
			name:   "magnitude",
			fields: map[string]any{"time": "55000.1", "magnitude": "14.2", "band": "V", "source": "1"},
			valid:  true,
		},
		{
			name:   "date time",
			fields: map[string]any{"time": "2011-08-24", "magnitude": 14.2, "source": 1},
			valid:  true,
		},
		{
			name: "flux with units",
			fields: map[string]any{
				"time": 55000, "flux": "1.2e-3", "u_flux": "Jy",
				"frequency": 5, "u_frequency": "GHz", "source": "1",
			},
			valid: true,
		},
		{
			name:   "flux without units",
			fields: map[string]any{"time": 55000, "flux": 1.2, "source": "1"},
		},
		{
			name:   "no measurement",
			fields: map[string]any{"time": 55000, "band": "V", "source": "1"},
		},
		{
			name:   "bad time",
			fields: map[string]any{"time": "yesterday", "magnitude": 14.2, "source": "1"},
		},
		{
			name:   "undeclared field",
			fields: map[string]any{"time": 55000, "magnitude": 14.2, "source": "1", "colour": "red"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPhotometry(tt.fields)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidationError(err), "got %v", err)
			}
		})
	}
}

func TestSpectrum(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		valid  bool
	}{
		{
			name: "data rows",
			fields: map[string]any{
				"data":          []any{[]any{"4000.0", "1.2e-15"}, []any{4001, 1.3e-15}},
				"u_wavelengths": "Angstrom", "u_fluxes": "erg/s/cm^2/Angstrom", "source": "1",
			},
			valid: true,
		},
		{
			name: "columns",
			fields: map[string]any{
				"wavelengths": []any{4000, 4001}, "fluxes": []any{1, 2},
				"u_wavelengths": "Angstrom", "u_fluxes": "Uncalibrated", "source": "1",
			},
			valid: true,
		},
		{
			name:   "file",
			fields: map[string]any{"filename": "sn2011fe.dat", "u_fluxes": "Uncalibrated"},
			valid:  true,
		},
		{
			name: "errors without units",
			fields: map[string]any{
				"wavelengths": []any{4000}, "fluxes": []any{1}, "errors": []any{0.1},
				"u_wavelengths": "Angstrom", "u_fluxes": "Uncalibrated", "source": "1",
			},
		},
		{
			name:   "no data",
			fields: map[string]any{"u_fluxes": "Uncalibrated", "source": "1"},
		},
		{
			name:   "no flux units",
			fields: map[string]any{"filename": "sn2011fe.dat"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpectrum(tt.fields)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidationError(err), "got %v", err)
			}
		})
	}
}

func TestQuantity(t *testing.T) {
	_, err := NewQuantity(map[string]any{"value": []any{"1.0", 2}, "source": "1,2"})
	assert.NoError(t, err)

	_, err = NewQuantity(map[string]any{"value": []any{}, "source": "1"})
	assert.True(t, IsValidationError(err))

	_, err = NewQuantity(map[string]any{"value": "bright", "source": "1"})
	assert.True(t, IsValidationError(err))

	_, err = NewQuantity(map[string]any{"value": 1})
	assert.True(t, IsValidationError(err))
}

func TestBundledFixtures(t *testing.T) {
	cases, err := fixtures.Load(filepath.Join("testdata", "fixtures"))
	require.NoError(t, err)
	require.NotEmpty(t, cases)

	reg, err := BundledRegistry()
	require.NoError(t, err)

	summary, err := fixtures.Run(context.Background(), cases, func(title string, entry *jsontree.Object) error {
		doc, err := reg.Resolve(title)
		if err != nil {
			return err
		}
		return doc.Validate(entry)
	})
	require.NoError(t, err)
	assert.Equal(t, len(cases), summary.Passed)
}
