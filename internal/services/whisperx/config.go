package whisperx

// WhisperX invocation constants.
const (
	UVXCommand        = "uvx"
	DefaultModel      = "medium"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BeamSize          = "5"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "int8"
	CUDAComputeType   = "float16"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// DefaultComputeType picks the numeric precision for a device: int8 on cpu,
// float16 on anything else.
func DefaultComputeType(device string) string {
	if device == "" || device == CPUDevice {
		return CPUComputeType
	}
	return CUDAComputeType
}
