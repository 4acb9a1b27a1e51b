package model

// Labels maps output indices to class names. The order matches the
// classifier head the weights were trained with.
var Labels = []string{"invalid", "valid"}

// Architecture describes the tensors the exported network consumes and
// produces.
type Architecture struct {
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
	Classes     []string
	ImageSize   int
}

// MobileNet is the MobileNetV2 backbone with the two-class head
// (1280 -> 512 -> ReLU -> Dropout -> 2), exported in eval mode.
var MobileNet = Architecture{
	InputName:   "input",
	OutputName:  "output",
	InputShape:  []int64{1, 3, 224, 224},
	OutputShape: []int64{1, 2},
	Classes:     Labels,
	ImageSize:   224,
}

// InputSize is the number of float32 values in one input tensor.
func (a Architecture) InputSize() int {
	n := 1
	for _, d := range a.InputShape {
		n *= int(d)
	}
	return n
}

// Device is the compute device a network runs on.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// ParseDevice validates a device name from configuration.
func ParseDevice(s string) (Device, error) {
	switch d := Device(s); d {
	case DeviceAuto, DeviceCPU, DeviceCUDA:
		return d, nil
	case "":
		return DeviceAuto, nil
	}
	return "", &Error{Kind: KindConfiguration, Op: "parse device", Err: errUnknownDevice(s)}
}

// Network runs the forward pass of a loaded model. Implementations must be
// safe for concurrent use.
type Network interface {
	// Forward takes a flattened NCHW input and returns the raw logits.
	Forward(input []float32) ([]float32, error)
	Device() Device
	Close() error
}
