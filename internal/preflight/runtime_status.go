package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Platform names the host OS family: "linux", "windows" or "unknown".
func Platform() string {
	switch runtime.GOOS {
	case "linux", "windows":
		return runtime.GOOS
	default:
		return "unknown"
	}
}

// GPUProbe reports the NVIDIA GPU visible to the host, if any.
type GPUProbe struct {
	Detected bool
	Name     string
	Driver   string
}

// ProbeGPU queries nvidia-smi for the first GPU.
func ProbeGPU(ctx context.Context) GPUProbe {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return GPUProbe{}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name,driver_version", "--format=csv,noheader")
	output, err := cmd.Output()
	if err != nil {
		return GPUProbe{}
	}
	return parseGPUProbe(string(output))
}

func parseGPUProbe(output string) GPUProbe {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if strings.TrimSpace(line) == "" {
		return GPUProbe{}
	}
	name, driver, _ := strings.Cut(line, ",")
	return GPUProbe{
		Detected: true,
		Name:     strings.TrimSpace(name),
		Driver:   strings.TrimSpace(driver),
	}
}

// DeviceResult compares the configured transcription device with the probe.
func (p GPUProbe) DeviceResult(device string) Result {
	const name = "Transcription device"
	device = strings.ToLower(strings.TrimSpace(device))
	if device != "cuda" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", device, Platform())}
	}
	if !p.Detected {
		return Result{Name: name, Detail: "cuda configured but no NVIDIA GPU detected (set transcription.device = \"cpu\")"}
	}
	detail := "cuda on " + p.Name
	if p.Driver != "" {
		detail += " (driver " + p.Driver + ")"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
