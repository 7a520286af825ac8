package deps

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddMerge(t *testing.T) {
	// Arrange
	s := NewStore()
	changes := 0
	s.OnChange(func() { changes++ })

	// Act
	created := s.Add("STM32F1xx_DFP", Dependence{Name: "USB", IncList: []string{"inc"}, DefineList: []string{"FOO", "USE_USB"}})
	merged := s.Add("STM32F1xx_DFP", Dependence{Name: "USB", IncList: []string{"inc", "usb/inc"}, DefineList: []string{"FOO"}})

	// Assert
	assert.True(t, created)
	assert.False(t, merged)

	d, ok := s.Lookup("STM32F1xx_DFP", "USB")
	require.True(t, ok)
	assert.Equal(t, []string{"inc", "usb/inc"}, d.IncList)
	assert.Equal(t, []string{"FOO", "USE_USB"}, d.DefineList)
	assert.Equal(t, 3, changes)
}

func TestStore_AddIdempotent(t *testing.T) {
	s := NewStore()
	dep := Dependence{Name: "UART", IncList: []string{"a", "b"}, LibList: []string{"l.a"}}
	s.Add("P", dep)

	before := *mustLookup(t, s, "P", "UART")
	changes := 0
	s.OnChange(func() { changes++ })
	s.Add("P", dep)

	assert.Equal(t, before, *mustLookup(t, s, "P", "UART"))
	assert.Zero(t, changes)
}

func TestStore_RemoveAndGroups(t *testing.T) {
	s := NewStore()
	s.Add("P", Dependence{Name: "A"})
	s.Add("P", Dependence{Name: "B"})
	s.EnsureGroup(CustomGroup)

	assert.Equal(t, []string{"P", CustomGroup}, s.GroupNames())
	assert.True(t, s.IsEmpty(CustomGroup))
	assert.True(t, s.IsEmpty("missing"))

	assert.True(t, s.Remove("P", "A"))
	assert.False(t, s.Remove("P", "A"))
	assert.False(t, s.Remove("missing", "A"))

	g, ok := s.Group("P")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, g.DepNames())

	assert.True(t, s.Remove("P", "B"))
	assert.True(t, s.IsEmpty("P"))
	assert.True(t, s.RemoveGroup("P"))
	assert.False(t, s.RemoveGroup("P"))
}

func TestStore_Merged(t *testing.T) {
	s := NewStore()
	s.Add(BuiltinGroup, Dependence{Name: ToolchainDep, IncList: []string{"sys/inc"}})
	s.Add("P", Dependence{Name: "A", IncList: []string{"a"}, DefineList: []string{"FOO"}})
	s.Add("P", Dependence{Name: "B", IncList: []string{"a", "b"}, DefineList: []string{"FOO", ""}})

	all := s.Merged()
	assert.Equal(t, []string{"sys/inc", "a", "b"}, all.IncList)
	assert.Equal(t, []string{"FOO"}, all.DefineList)
	assert.Nil(t, all.LibList)
}

func TestStore_SaveLoad(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), ".yapm", "deps.toml")
	s := NewStore()
	s.Add("P", Dependence{Name: "A", IncList: []string{"a"}, DefineList: []string{"FOO"}})
	s.EnsureGroup(CustomGroup)

	// Act
	require.NoError(t, s.Save(path))
	loaded, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"P", CustomGroup}, loaded.GroupNames())
	d := mustLookup(t, loaded, "P", "A")
	assert.Equal(t, []string{"a"}, d.IncList)
	assert.Equal(t, []string{"FOO"}, d.DefineList)

	empty, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Empty(t, empty.Groups)
}

func mustLookup(t *testing.T, s *Store, group, name string) *Dependence {
	t.Helper()
	d, ok := s.Lookup(group, name)
	require.True(t, ok, "dependence %s/%s", group, name)
	return d
}
