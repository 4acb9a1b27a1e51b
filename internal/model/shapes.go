package model

import "fmt"

type tensorInfo struct {
	Name  string
	Dims  []int64
	Float bool
}

// checkShapes verifies that the graph declares exactly one float input and
// output with the names and shapes arch expects. Negative dimensions are
// symbolic and match anything.
func checkShapes(arch Architecture, inputs, outputs []tensorInfo) error {
	if err := checkTensor("input", arch.InputName, arch.InputShape, inputs); err != nil {
		return &Error{Kind: KindModelIncompatibility, Op: "check model graph",
			Err: fmt.Errorf("%w: %v", ErrModelIncompatible, err)}
	}
	if err := checkTensor("output", arch.OutputName, arch.OutputShape, outputs); err != nil {
		return &Error{Kind: KindModelIncompatibility, Op: "check model graph",
			Err: fmt.Errorf("%w: %v", ErrModelIncompatible, err)}
	}
	return nil
}

func checkTensor(role, name string, want []int64, got []tensorInfo) error {
	if len(got) != 1 {
		return fmt.Errorf("expected 1 %s tensor, graph has %d", role, len(got))
	}
	t := got[0]
	if t.Name != name {
		return fmt.Errorf("%s tensor is named %q, expected %q", role, t.Name, name)
	}
	if !t.Float {
		return fmt.Errorf("%s tensor %q is not float32", role, t.Name)
	}
	if len(t.Dims) != len(want) {
		return fmt.Errorf("%s tensor %q has shape %v, expected %v", role, t.Name, t.Dims, want)
	}
	for i, d := range t.Dims {
		if d >= 0 && d != want[i] {
			return fmt.Errorf("%s tensor %q has shape %v, expected %v", role, t.Name, t.Dims, want)
		}
	}
	return nil
}
