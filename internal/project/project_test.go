package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yapm/internal/deps"
	"github.com/frederic-klein/yapm/internal/event"
	"github.com/frederic-klein/yapm/internal/pack"
	"github.com/frederic-klein/yapm/internal/resolver"
)

const demoPack = `vendor: Keil
name: Demo_DFP
version: 1.0.0
families:
  - name: STM32F1
    vendor: STMicroelectronics:13
    devices:
      - name: STM32F103C8
  - name: LPC17
    vendor: NXP:11
    subFamilies:
      - name: LPC176x
        devices:
          - name: LPC1768
components:
  - groupName: UART
    condition: ST Device
    rteDefine: "#define RTE_UART"
    sourceList:
      - path: Drivers/uart.c
  - groupName: ClockConfig
    class: Device
    rteDefine: "#define RTE_CLOCK"
    sourceList:
      - path: Device/clock.c
  - groupName: USB
    condition: USB Device
    rteDefine: "#define RTE_USB"
    sourceList:
      - path: USB/usb.c
  - groupName: Microchip
    condition: Microchip Device
conditions:
  ST Device:
    require:
      - deviceVendor: STMicroelectronics
  USB Device:
    require:
      - component: Device.ClockConfig
  Microchip Device:
    require:
      - deviceVendor: Microchip
`

var (
	stSelector  = pack.Selector{Family: 0, SubFamily: -1, Device: 0}
	nxpSelector = pack.Selector{Family: 1, SubFamily: 0, Device: 0}
)

// newProject creates a project dir whose packs dir holds the demo pack.
func newProject(t *testing.T) (string, *Project) {
	t.Helper()
	dir := t.TempDir()
	packDir := filepath.Join(dir, "packs", "Keil.Demo_DFP")
	require.NoError(t, os.MkdirAll(packDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(packDir, pack.ModelFileName), []byte(demoPack), 0644))

	p, err := Open(dir, nil)
	require.NoError(t, err)
	return dir, p
}

func record(p *Project) *[]event.Event {
	var events []event.Event
	p.Subscribe(func(e event.Event) { events = append(events, e) })
	return &events
}

func TestOpen_Empty(t *testing.T) {
	p, err := Open(t.TempDir(), nil)

	require.NoError(t, err)
	assert.Nil(t, p.Pack())
	assert.Nil(t, p.Device())
	assert.Equal(t, "GCC", p.Toolchain().ID)
	assert.True(t, p.HeaderAutoGen())
	assert.Empty(t, p.Components())
	assert.True(t, p.Check("anything"))
	assert.ErrorIs(t, p.Install("UART"), resolver.ErrNoPack)
}

func TestOpen_Config(t *testing.T) {
	dir := t.TempDir()
	cfg := "toolchain: IAR\nheader:\n  auto_generate: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yapm.yaml"), []byte(cfg), 0644))

	p, err := Open(dir, nil)

	require.NoError(t, err)
	assert.Equal(t, "IAR", p.Toolchain().ID)
	assert.False(t, p.HeaderAutoGen())
}

func TestLoadPack(t *testing.T) {
	// Arrange
	_, p := newProject(t)
	events := record(p)

	// Act
	err := p.LoadPack("keil.demo_dfp")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Keil.Demo_DFP", p.Pack().Key())
	assert.Contains(t, *events, event.Event(event.PackageChanged{Pack: "Keil.Demo_DFP"}))

	tc, ok := p.Dependencies().Lookup(deps.BuiltinGroup, deps.ToolchainDep)
	require.True(t, ok)
	assert.Equal(t, []string{"__GNUC__"}, tc.DefineList)
	_, ok = p.Dependencies().Group(deps.CustomGroup)
	assert.True(t, ok)
}

func TestLoadPack_FailureClearsState(t *testing.T) {
	_, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	require.NoError(t, p.Install("ClockConfig"))

	err := p.LoadPack("ARM.Missing")

	require.Error(t, err)
	assert.Nil(t, p.Pack())
	_, ok := p.Dependencies().Group("Demo_DFP")
	assert.False(t, ok)
	assert.Empty(t, p.Tree().Root.Folders)
	_, err = os.Stat(p.HeaderPath())
	assert.True(t, os.IsNotExist(err))
}

func TestSelectDevice(t *testing.T) {
	// Arrange
	_, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	_, err := p.SelectDevice(stSelector)
	require.NoError(t, err)
	require.NoError(t, p.Install("UART", "ClockConfig"))
	events := record(p)

	// Act
	updates, err := p.SelectDevice(nxpSelector)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []event.Update{{Name: "UART", State: event.Disabled}}, updates)
	assert.Equal(t, "LPC1768", p.Device().Info.Name)
	assert.Equal(t, "NXP:11", p.Device().Vendor)

	require.Len(t, *events, 2)
	assert.Equal(t, event.DeviceChanged{Previous: &stSelector}, (*events)[0])
	assert.Equal(t, event.ComponentUpdate{Updates: updates}, (*events)[1])

	status := p.Components()
	assert.Equal(t, ComponentStatus{Group: "UART", Installed: true, Expired: true}, status[0])
	assert.Equal(t, ComponentStatus{Group: "ClockConfig", Class: "Device", Enabled: true, Installed: true}, status[1])
}

func TestSelectDevice_Errors(t *testing.T) {
	_, p := newProject(t)

	_, err := p.SelectDevice(stSelector)
	assert.ErrorIs(t, err, resolver.ErrNoPack)

	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	_, err = p.SelectDevice(pack.Selector{Family: 5, SubFamily: -1})
	assert.ErrorIs(t, err, pack.ErrInvalidSelector)
	_, err = p.SelectDeviceByName("ATSAMD21")
	assert.ErrorIs(t, err, pack.ErrInvalidSelector)
}

func TestInstall_CollectsFailures(t *testing.T) {
	_, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	_, err := p.SelectDeviceByName("STM32F103C8")
	require.NoError(t, err)

	err = p.Install("Microchip", "USB", "Nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Microchip"`)
	assert.ErrorIs(t, err, resolver.ErrUnknownComponent)

	var installed []string
	for _, c := range p.Components() {
		if c.Installed {
			installed = append(installed, c.Group)
		}
	}
	assert.Equal(t, []string{"ClockConfig", "USB"}, installed)
}

func TestSetToolchain(t *testing.T) {
	_, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))

	_, err := p.SetToolchain("ac6")
	require.NoError(t, err)

	assert.Equal(t, "AC6", p.Toolchain().ID)
	tc, ok := p.Dependencies().Lookup(deps.BuiltinGroup, deps.ToolchainDep)
	require.True(t, ok)
	assert.Equal(t, []string{"__ARMCC_VERSION"}, tc.DefineList)

	_, err = p.SetToolchain("TASKING")
	assert.Error(t, err)
	assert.Equal(t, "AC6", p.Toolchain().ID)
}

func TestHeader(t *testing.T) {
	_, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	require.NoError(t, p.Install("USB"))

	ok, err := p.CheckHeader()
	require.NoError(t, err)
	assert.True(t, ok)

	p.SetHeaderAutoGen(false)
	_, err = os.Stat(p.HeaderPath())
	assert.True(t, os.IsNotExist(err))

	p.SetHeaderAutoGen(true)
	data, err := os.ReadFile(p.HeaderPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define RTE_CLOCK\n#define RTE_USB\n")
	assert.Contains(t, string(data), "Project: '"+filepath.Base(p.Dir())+"'")
}

func TestUnloadPack(t *testing.T) {
	_, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	require.NoError(t, p.Install("USB"))

	require.NoError(t, p.UnloadPack())

	assert.Nil(t, p.Pack())
	assert.Equal(t, []string{deps.BuiltinGroup, deps.CustomGroup}, p.Dependencies().GroupNames())
	_, err := os.Stat(p.HeaderPath())
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, p.UnloadPack(), resolver.ErrNoPack)
}

func TestSave_Reopen(t *testing.T) {
	// Arrange
	dir, p := newProject(t)
	require.NoError(t, p.LoadPack("Keil.Demo_DFP"))
	_, err := p.SelectDevice(stSelector)
	require.NoError(t, err)
	require.NoError(t, p.Install("USB", "UART"))
	_, err = p.SetToolchain("AC5")
	require.NoError(t, err)

	// Act
	require.NoError(t, p.Save())
	reopened, err := Open(dir, nil)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, reopened.Pack())
	assert.Equal(t, "Keil.Demo_DFP", reopened.Pack().Key())
	assert.Equal(t, &stSelector, reopened.Selector())
	assert.Equal(t, "AC5", reopened.Toolchain().ID)
	assert.Equal(t, p.Components(), reopened.Components())
	assert.Equal(t, p.Dependencies().Merged(), reopened.Dependencies().Merged())

	ok, err := reopened.CheckHeader()
	require.NoError(t, err)
	assert.True(t, ok)

	// Reopening must not report changes that already happened.
	updates, err := reopened.SelectDevice(stSelector)
	require.NoError(t, err)
	assert.Empty(t, updates)
}
