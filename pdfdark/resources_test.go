package pdfdark

import (
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"

	"duskpdf/contentstream"
)

func TestDeviceSpaceByNameRecognizesDeviceSpaces(t *testing.T) {
	assert.Equal(t, contentstream.SpaceGray, deviceSpaceByName("DeviceGray"))
	assert.Equal(t, contentstream.SpaceGray, deviceSpaceByName("CalGray"))
	assert.Equal(t, contentstream.SpaceRGB, deviceSpaceByName("DeviceRGB"))
	assert.Equal(t, contentstream.SpaceCMYK, deviceSpaceByName("DeviceCMYK"))
	assert.Equal(t, contentstream.SpaceUnknown, deviceSpaceByName("Pattern"))
	assert.Equal(t, contentstream.SpaceUnknown, deviceSpaceByName("Separation"))
}

func TestDeviceSpaceOfLiteralName(t *testing.T) {
	assert.Equal(t, contentstream.SpaceRGB, deviceSpaceOf(nil, types.Name("DeviceRGB")))
	assert.Equal(t, contentstream.SpaceGray, deviceSpaceOf(nil, types.Name("DeviceGray")))
}

func TestDeviceSpaceOfCalArrayForms(t *testing.T) {
	assert.Equal(t, contentstream.SpaceGray, deviceSpaceOf(nil, types.Array{types.Name("CalGray")}))
	assert.Equal(t, contentstream.SpaceRGB, deviceSpaceOf(nil, types.Array{types.Name("CalRGB")}))
	assert.Equal(t, contentstream.SpaceRGB, deviceSpaceOf(nil, types.Array{types.Name("Lab")}))
}

func TestDeviceSpaceOfIndexedIsUnknown(t *testing.T) {
	// An Indexed operand is a palette index, not a device color fraction;
	// it must never be resolved to Gray even though sc/scn arity matches.
	assert.Equal(t, contentstream.SpaceUnknown, deviceSpaceOf(nil, types.Array{types.Name("Indexed")}))
}

func TestDeviceSpaceOfEmptyArrayIsUnknown(t *testing.T) {
	assert.Equal(t, contentstream.SpaceUnknown, deviceSpaceOf(nil, types.Array{}))
}

func TestResolveColorSpaceDirectDictNoResources(t *testing.T) {
	assert.Equal(t, contentstream.SpaceUnknown, resolveColorSpace(nil, nil, "CS0"))
}

func TestResolveColorSpaceDirectEntry(t *testing.T) {
	resources := types.Dict{
		"ColorSpace": types.Dict{
			"CS0": types.Name("DeviceCMYK"),
		},
	}
	assert.Equal(t, contentstream.SpaceCMYK, resolveColorSpace(nil, resources, "CS0"))
	assert.Equal(t, contentstream.SpaceUnknown, resolveColorSpace(nil, resources, "Missing"))
}

func TestDictFromObjectDirectDict(t *testing.T) {
	d := types.Dict{"A": types.Integer(1)}
	got, err := dictFromObject(nil, d)
	assert.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDictFromObjectRejectsNonDict(t *testing.T) {
	_, err := dictFromObject(nil, types.Integer(1))
	assert.Error(t, err)
}
