package scip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	id, err := ParseIdentifier("scip-php composer acme/app 1.4.0 App/Models/User#")
	require.NoError(t, err)
	assert.Equal(t, "scip-php", id.Scheme)
	assert.Equal(t, "composer", id.Manager)
	assert.Equal(t, "acme/app", id.Package)
	assert.Equal(t, "1.4.0", id.Version)
	assert.Equal(t, "App/Models/User#", id.Descriptor)
	assert.False(t, id.IsLocal())

	local, err := ParseIdentifier("local 12")
	require.NoError(t, err)
	assert.True(t, local.IsLocal())

	_, err = ParseIdentifier("")
	assert.Error(t, err)
	_, err = ParseIdentifier("scip-php composer App/Foo#")
	assert.Error(t, err)
}

func TestParseDescriptor(t *testing.T) {
	parts, err := ParseDescriptor("App/Foo#run().")
	require.NoError(t, err)
	assert.Equal(t, []DescriptorPart{
		{Name: "App", Suffix: SuffixNamespace},
		{Name: "Foo", Suffix: SuffixType},
		{Name: "run", Suffix: SuffixMethod},
	}, parts)

	parts, err = ParseDescriptor("`my pkg`/`Odd``Name`#$count.")
	require.NoError(t, err)
	assert.Equal(t, []DescriptorPart{
		{Name: "my pkg", Suffix: SuffixNamespace},
		{Name: "Odd`Name", Suffix: SuffixType},
		{Name: "$count", Suffix: SuffixTerm},
	}, parts)

	parts, err = ParseDescriptor("App/map().(callback)")
	require.NoError(t, err)
	assert.Equal(t, DescriptorPart{Name: "callback", Suffix: SuffixParameter}, parts[len(parts)-1])

	for _, bad := range []string{"App", "App/Foo#run(", "`open", "App/Foo#run()"} {
		_, err := ParseDescriptor(bad)
		assert.Error(t, err, bad)
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
		isType bool
	}{
		{"scip-php composer acme/app 1.0 App/Models/User#", `App\Models\User`, true},
		{"scip-php composer acme/app 1.0 Foo#", "Foo", true},
		{"scip-php composer acme/app 1.0 App/Foo#run().", "", false},
		{"scip-php composer acme/app 1.0 App/Foo#$bar.", "", false},
		{"scip-php composer acme/app 1.0 App/helper().", "", false},
		{"local 3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			id, err := ParseIdentifier(tt.symbol)
			require.NoError(t, err)
			got, ok := TypeName(id)
			assert.Equal(t, tt.isType, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
