package mpv

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPlatform(t *testing.T) {
	platform := DetectPlatform()

	switch runtime.GOOS {
	case "windows":
		assert.Equal(t, PlatformWindows, platform)
	case "darwin":
		assert.Equal(t, PlatformMac, platform)
	case "linux":
		if isWSL() {
			assert.Equal(t, PlatformWSL, platform)
		} else {
			assert.Equal(t, PlatformLinux, platform)
		}
	}
}

func TestGetMPVExecutable(t *testing.T) {
	tests := map[Platform]string{
		PlatformLinux:   "mpv",
		PlatformMac:     "mpv",
		PlatformWindows: "mpv.exe",
		PlatformWSL:     "mpv",
	}

	for platform, want := range tests {
		assert.Equal(t, want, GetMPVExecutable(platform), platform.String())
	}
}

func TestFindMPVExecutable_Missing(t *testing.T) {
	_, err := FindMPVExecutable(PlatformLinux, "clipview-no-such-player")
	assert.ErrorContains(t, err, "clipview-no-such-player not found")
}

func TestGetIPCConfig(t *testing.T) {
	tests := []struct {
		platform Platform
		ipcType  IPCType
		isSocket bool
		prefix   string
	}{
		{PlatformLinux, IPCUnixSocket, true, os.TempDir()},
		{PlatformMac, IPCUnixSocket, true, os.TempDir()},
		{PlatformWSL, IPCUnixSocket, true, os.TempDir()},
		{PlatformWindows, IPCNamedPipe, false, `\\.\pipe\clipview-mpv-`},
	}

	for _, tt := range tests {
		t.Run(tt.platform.String(), func(t *testing.T) {
			cfg, err := GetIPCConfig(tt.platform)
			require.NoError(t, err)

			assert.Equal(t, tt.ipcType, cfg.Type)
			assert.Equal(t, tt.isSocket, cfg.IsSocket())
			assert.True(t, strings.HasPrefix(cfg.Address, tt.prefix), cfg.Address)
			assert.Contains(t, cfg.Address, "clipview-mpv-")

			other, err := GetIPCConfig(tt.platform)
			require.NoError(t, err)
			assert.NotEqual(t, cfg.Address, other.Address)
		})
	}
}

func TestGetGopvConnectionString(t *testing.T) {
	assert.Equal(t, "tcp://127.0.0.1:9000", GetGopvConnectionString(&IPCConfig{Type: IPCTCP, Address: "127.0.0.1:9000"}))
	assert.Equal(t, "/tmp/a.sock", GetGopvConnectionString(&IPCConfig{Type: IPCUnixSocket, Address: "/tmp/a.sock"}))
	assert.Equal(t, "--input-ipc-server=/tmp/a.sock", GetMPVIPCArgument(&IPCConfig{Address: "/tmp/a.sock"}))
}

func TestCleanupIPC(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "clipview-mpv-*.sock")
	require.NoError(t, err)
	f.Close()

	cleanupIPC(&IPCConfig{Type: IPCUnixSocket, Address: f.Name()})
	assert.NoFileExists(t, f.Name())

	assert.NotPanics(t, func() { cleanupIPC(nil) })
}
