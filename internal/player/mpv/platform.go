package mpv

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform is the operating system mpv runs on
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformWSL
	PlatformMac
)

// String returns the platform name
func (p Platform) String() string {
	switch p {
	case PlatformWindows:
		return "windows"
	case PlatformWSL:
		return "wsl"
	case PlatformMac:
		return "darwin"
	default:
		return "linux"
	}
}

// IPCType is the transport of the mpv JSON IPC server
type IPCType int

const (
	IPCUnixSocket IPCType = iota
	IPCNamedPipe
	IPCTCP
)

// IPCConfig is where one mpv process listens for IPC clients
type IPCConfig struct {
	Type    IPCType
	Address string
}

// IsSocket reports whether Address is a socket file that must be removed on shutdown
func (c *IPCConfig) IsSocket() bool {
	return c.Type == IPCUnixSocket
}

// DetectPlatform detects the current platform
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMac
	default:
		if isWSL() {
			return PlatformWSL
		}
		return PlatformLinux
	}
}

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// GetMPVExecutable returns the mpv executable name for the platform. WSL
// uses the Linux build since gopv cannot reach Windows named pipes from WSL.
func GetMPVExecutable(platform Platform) string {
	if platform == PlatformWindows {
		return "mpv.exe"
	}
	return "mpv"
}

// FindMPVExecutable resolves override, or the platform's mpv, in PATH
func FindMPVExecutable(platform Platform, override string) (string, error) {
	executable := override
	if executable == "" {
		executable = GetMPVExecutable(platform)
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH, please install mpv: %w", executable, err)
	}
	return path, nil
}

// GetIPCConfig generates a fresh IPC endpoint for the platform
func GetIPCConfig(platform Platform) (*IPCConfig, error) {
	switch platform {
	case PlatformLinux, PlatformMac, PlatformWSL:
		return &IPCConfig{
			Type:    IPCUnixSocket,
			Address: filepath.Join(os.TempDir(), fmt.Sprintf("clipview-mpv-%s.sock", uuid.NewString())),
		}, nil
	case PlatformWindows:
		return &IPCConfig{
			Type:    IPCNamedPipe,
			Address: fmt.Sprintf(`\\.\pipe\clipview-mpv-%s`, uuid.NewString()),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported platform %s", platform)
	}
}

// GetMPVIPCArgument returns the mpv command-line argument for IPC
func GetMPVIPCArgument(config *IPCConfig) string {
	return fmt.Sprintf("--input-ipc-server=%s", config.Address)
}

// GetGopvConnectionString returns the address gopv connects to
func GetGopvConnectionString(config *IPCConfig) string {
	if config.Type == IPCTCP {
		return "tcp://" + config.Address
	}
	return config.Address
}

// dialIPC opens a raw connection to the IPC server, used for the event stream
func dialIPC(config *IPCConfig, timeout time.Duration) (net.Conn, error) {
	switch config.Type {
	case IPCTCP:
		return net.DialTimeout("tcp", config.Address, timeout)
	case IPCNamedPipe:
		return dialPipe(config.Address, timeout)
	default:
		return net.DialTimeout("unix", config.Address, timeout)
	}
}

// cleanupIPC removes the socket file left by mpv
func cleanupIPC(config *IPCConfig) {
	if config != nil && config.IsSocket() {
		_ = os.Remove(config.Address)
	}
}
