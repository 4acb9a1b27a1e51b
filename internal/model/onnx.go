package model

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

var runtimeMu sync.Mutex

// InitRuntime loads the ONNX runtime shared library once per process. An
// empty libPath leaves the library default in place.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return &Error{Kind: KindConfiguration, Op: "initialize onnx runtime", Err: err}
	}
	return nil
}

// DestroyRuntime releases the ONNX environment. Networks must be closed first.
func DestroyRuntime() {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		log.Warn("[Model] Couldn't destroy onnx environment: ", err.Error())
	}
}

type onnxNetwork struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	device       Device
}

// ONNXOpener returns an Opener that builds an ONNX runtime session for arch.
// The runtime is initialized with libPath on first use.
func ONNXOpener(arch Architecture, libPath string) Opener {
	return func(path string, device Device) (Network, error) {
		if err := InitRuntime(libPath); err != nil {
			return nil, err
		}
		return openONNX(path, arch, device)
	}
}

func openONNX(path string, arch Architecture, device Device) (Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "open weights", Err: err}
	}
	f.Close()

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, &Error{Kind: KindModelIncompatibility, Op: "read model graph",
			Err: fmt.Errorf("%w: %v", ErrModelIncompatible, err)}
	}
	if err := checkShapes(arch, tensorInfos(inputs), tensorInfos(outputs)); err != nil {
		return nil, err
	}

	return startOnDevices(device, func(d Device) (Network, error) {
		return newSession(path, arch, d)
	})
}

// startOnDevices calls start for each device deviceAttempts yields and
// returns the first network that comes up, or the last error.
func startOnDevices(requested Device, start func(Device) (Network, error)) (Network, error) {
	var lastErr error
	for _, d := range deviceAttempts(requested) {
		net, err := start(d)
		if err == nil {
			return net, nil
		}
		log.Info("[Model] Couldn't start session on ", d, ": ", err.Error())
		lastErr = err
	}
	return nil, lastErr
}

// deviceAttempts lists the devices to try in order. Auto prefers CUDA and
// falls back to the cpu provider.
func deviceAttempts(requested Device) []Device {
	switch requested {
	case DeviceCPU:
		return []Device{DeviceCPU}
	case DeviceCUDA:
		return []Device{DeviceCUDA}
	}
	return []Device{DeviceCUDA, DeviceCPU}
}

func newSession(path string, arch Architecture, device Device) (Network, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "create session options", Err: err}
	}
	defer opts.Destroy()

	if device == DeviceCUDA {
		if err := appendCUDA(opts); err != nil {
			return nil, &Error{Kind: KindConfiguration, Op: "enable cuda", Err: err}
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(arch.InputShape...))
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "create input tensor", Err: err}
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(arch.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, &Error{Kind: KindConfiguration, Op: "create output tensor", Err: err}
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{arch.InputName}, []string{arch.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		opts)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, &Error{Kind: KindConfiguration, Op: "create onnx session", Err: err}
	}

	return &onnxNetwork{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		device:       device,
	}, nil
}

func appendCUDA(opts *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()

	if err := cuda.Update(map[string]string{"device_id": "0"}); err != nil {
		return err
	}
	return opts.AppendExecutionProviderCUDA(cuda)
}

func (n *onnxNetwork) Forward(input []float32) ([]float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	data := n.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input has %d values, expected %d", len(input), len(data))
	}
	copy(data, input)

	if err := n.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := n.outputTensor.GetData()
	logits := make([]float32, len(out))
	copy(logits, out)
	return logits, nil
}

func (n *onnxNetwork) Device() Device { return n.device }

func (n *onnxNetwork) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var firstErr error
	if n.session != nil {
		firstErr = n.session.Destroy()
		n.session = nil
	}
	if n.inputTensor != nil {
		n.inputTensor.Destroy()
		n.inputTensor = nil
	}
	if n.outputTensor != nil {
		n.outputTensor.Destroy()
		n.outputTensor = nil
	}
	return firstErr
}

func tensorInfos(infos []ort.InputOutputInfo) []tensorInfo {
	out := make([]tensorInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, tensorInfo{
			Name:  info.Name,
			Dims:  []int64(info.Dimensions),
			Float: info.DataType == ort.TensorElementDataTypeFloat,
		})
	}
	return out
}
