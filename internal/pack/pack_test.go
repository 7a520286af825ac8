package pack

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = `
vendor: Keil
name: STM32F1xx_DFP
version: 2.4.0
families:
  - name: STM32F1 Series
    vendor: STMicroelectronics:13
    subFamilies:
      - name: STM32F103
        devices:
          - name: STM32F103C8
          - name: STM32F103RB
    devices:
      - name: STM32F100C4
        vendor: NXP:11
components:
  - groupName: Startup
    class: Device
    condition: STM32F1xx CMSIS
    rteDefine: "#define RTE_DEVICE_STARTUP_STM32F10X"
    asmList:
      - path: Device/Source/ARM/startup_stm32f10x_md.s
        condition: STM32F1xx MD ARMCC
    headerList:
      - path: Device/Include/stm32f10x.h
      - path: Device/Source/system_stm32f10x.c
        attr: template
conditions:
  STM32F1xx CMSIS:
    require:
      - deviceVendor: STMicroelectronics:13
`

func TestDecode(t *testing.T) {
	// Act
	p, err := Decode(strings.NewReader(testModel))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Keil.STM32F1xx_DFP", p.Key())
	assert.Equal(t, "2.4.0", p.Version)
	require.Len(t, p.Components, 1)

	c := p.Components[0]
	assert.Equal(t, "STM32F1xx CMSIS", c.Condition)
	assert.Len(t, c.Files(), 3)
	assert.True(t, c.HeaderList[1].IsTemplate())
	assert.Contains(t, p.Conditions, "STM32F1xx CMSIS")
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{"missing name", "vendor: Keil\n"},
		{"missing group name", "vendor: Keil\nname: P\ncomponents:\n  - class: Device\n"},
		{"duplicate group name", "vendor: Keil\nname: P\ncomponents:\n  - groupName: A\n  - groupName: A\n"},
		{"not yaml", "vendor: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.model))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFileName), []byte(testModel), 0644))

	// Act
	p, err := Load(dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, dir, p.Dir)

	_, err = Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestPackInfo_Resolve(t *testing.T) {
	p, err := Decode(strings.NewReader(testModel))
	require.NoError(t, err)

	tests := []struct {
		name       string
		sel        Selector
		wantDevice string
		wantVendor string
		wantErr    bool
	}{
		{"subfamily device", Selector{Family: 0, SubFamily: 0, Device: 1}, "STM32F103RB", "STMicroelectronics:13", false},
		{"family device with vendor override", Selector{Family: 0, SubFamily: -1, Device: 0}, "STM32F100C4", "NXP:11", false},
		{"bad family", Selector{Family: 3}, "", "", true},
		{"bad subfamily", Selector{Family: 0, SubFamily: 2}, "", "", true},
		{"bad device", Selector{Family: 0, SubFamily: 0, Device: 9}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := p.Resolve(tt.sel)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSelector))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDevice, dev.Info.Name)
			assert.Equal(t, tt.wantVendor, dev.Vendor)
		})
	}
}

func TestPackInfo_FindDevice(t *testing.T) {
	p, err := Decode(strings.NewReader(testModel))
	require.NoError(t, err)

	sel, ok := p.FindDevice("stm32f103c8")
	require.True(t, ok)
	assert.Equal(t, Selector{Family: 0, SubFamily: 0, Device: 0}, sel)

	_, ok = p.FindDevice("LPC1768")
	assert.False(t, ok)
}

func TestPackInfo_FindComponent(t *testing.T) {
	p := &PackInfo{Components: []*Component{
		{GroupName: "ClockConfig", Class: "Device"},
		{GroupName: "USB"},
		{GroupName: "Core.Extra"},
	}}

	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"USB", "USB", true},
		{"Device.ClockConfig", "ClockConfig", true},
		{"RTOS.ClockConfig", "ClockConfig", true},
		{"Core.Extra", "Core.Extra", true},
		{"Device.Missing", "", false},
		{"Device.", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			c, ok := p.FindComponent(tt.ref)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, c.GroupName)
			}
		})
	}
}
