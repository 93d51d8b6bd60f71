package backend

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice(t *testing.T) {
	assert.Equal(t, "host", Host.String())
	assert.Equal(t, "opencl", OpenCL.String())
	assert.Equal(t, "device(9)", Device(9).String())
	assert.False(t, Host.IsAccelerator())
	assert.True(t, MIC.IsAccelerator())
	assert.False(t, Device(9).Valid())
}

func TestDescriptor(t *testing.T) {
	d := Default()
	assert.False(t, d.HasAccelerator())
	assert.Equal(t, d.Host, d.Exec(Host))
	assert.NotNil(t, d.Log())

	gpu, err := NewDescriptor(GPU, 16)
	require.NoError(t, err)
	assert.True(t, gpu.HasAccelerator())
	assert.Equal(t, 16, gpu.Exec(GPU).NumWorkers)
	assert.Contains(t, gpu.String(), "accelerator=gpu")

	_, err = NewDescriptor(Device(42), 0)
	assert.Error(t, err)

	logged := d.WithLogger(slog.Default(), 2)
	assert.Equal(t, 2, logged.Verbose)
	assert.Same(t, slog.Default(), logged.Log())
}

func TestHostInfo(t *testing.T) {
	f := DetectFeatures()
	assert.NotEmpty(t, f.Architecture)
	assert.Positive(t, f.NumCPU)
	assert.Contains(t, HostInfo(), f.Architecture)
}
