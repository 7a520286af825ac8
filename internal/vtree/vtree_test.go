package vtree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_AddFolder(t *testing.T) {
	tree := New("deps")

	f, created, err := tree.AddFolder("deps/STM32F1xx_DFP/USB")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "USB", f.Name)

	_, created, err = tree.AddFolder("deps/STM32F1xx_DFP/USB")
	require.NoError(t, err)
	assert.False(t, created)

	_, ok := tree.Folder("deps/STM32F1xx_DFP")
	assert.True(t, ok)
}

func TestTree_InvalidPaths(t *testing.T) {
	tree := New("deps")

	tests := []string{"src/USB", "deps//USB", ""}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, _, err := tree.AddFolder(path)
			assert.True(t, errors.Is(err, ErrInvalidPath))
		})
	}

	assert.Error(t, tree.AddFile("deps/P", File{}))
}

func TestTree_AddFilesDeduplicates(t *testing.T) {
	tree := New("deps")
	files := []File{{Path: "/packs/a.c"}, {Path: "/packs/b.c"}}

	require.NoError(t, tree.AddFiles("deps/P/UART", files))
	require.NoError(t, tree.AddFiles("deps/P/UART", files))
	require.NoError(t, tree.AddFile("deps/P/UART", File{Path: "/packs/c.c"}))

	f, ok := tree.Folder("deps/P/UART")
	require.True(t, ok)
	assert.Len(t, f.Files, 3)
	assert.Equal(t, 3, tree.Root.FileCount())
}

func TestTree_SetFilesReplaces(t *testing.T) {
	// Arrange
	tree := New("deps")
	require.NoError(t, tree.AddFiles("deps/P/USB", []File{{Path: "/packs/usb_gcc.s"}, {Path: "/packs/usb.c"}}))

	// Act
	err := tree.SetFiles("deps/P/USB", []File{{Path: "/packs/usb.c"}, {Path: "/packs/usb.h"}, {Path: "/packs/usb.c"}})

	// Assert
	require.NoError(t, err)
	f, ok := tree.Folder("deps/P/USB")
	require.True(t, ok)
	assert.Equal(t, []File{{Path: "/packs/usb.c"}, {Path: "/packs/usb.h"}}, f.Files)

	err = tree.SetFiles("deps/P/USB", []File{{Path: "/packs/new.c"}, {Path: ""}})
	assert.True(t, errors.Is(err, ErrInvalidPath))
	assert.Equal(t, []File{{Path: "/packs/usb.c"}, {Path: "/packs/usb.h"}}, f.Files)
}

func TestTree_RemoveFolder(t *testing.T) {
	tree := New("deps")
	require.NoError(t, tree.AddFile("deps/P/UART", File{Path: "a.c"}))
	require.NoError(t, tree.AddFile("deps/P/USB", File{Path: "b.c"}))

	assert.True(t, tree.RemoveFolder("deps/P/UART"))
	assert.False(t, tree.RemoveFolder("deps/P/UART"))
	assert.False(t, tree.RemoveFolder("deps"))
	assert.False(t, tree.RemoveFolder("deps/Q/UART"))

	p, ok := tree.Folder("deps/P")
	require.True(t, ok)
	assert.False(t, p.IsEmpty())

	assert.True(t, tree.RemoveFolder(Join("deps", "P", "USB")))
	assert.True(t, p.IsEmpty())
}
