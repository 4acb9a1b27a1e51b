package model

import (
	"errors"
	"testing"
)

func TestCheckShapes(t *testing.T) {
	goodIn := []tensorInfo{{Name: "input", Dims: []int64{1, 3, 224, 224}, Float: true}}
	goodOut := []tensorInfo{{Name: "output", Dims: []int64{1, 2}, Float: true}}

	tests := []struct {
		name    string
		inputs  []tensorInfo
		outputs []tensorInfo
		wantErr bool
	}{
		{name: "exact", inputs: goodIn, outputs: goodOut},
		{
			name:    "dynamic batch",
			inputs:  []tensorInfo{{Name: "input", Dims: []int64{-1, 3, 224, 224}, Float: true}},
			outputs: []tensorInfo{{Name: "output", Dims: []int64{-1, 2}, Float: true}},
		},
		{
			name:    "thousand class head",
			inputs:  goodIn,
			outputs: []tensorInfo{{Name: "output", Dims: []int64{1, 1000}, Float: true}},
			wantErr: true,
		},
		{
			name:    "wrong resolution",
			inputs:  []tensorInfo{{Name: "input", Dims: []int64{1, 3, 299, 299}, Float: true}},
			outputs: goodOut,
			wantErr: true,
		},
		{
			name:    "nhwc layout",
			inputs:  []tensorInfo{{Name: "input", Dims: []int64{1, 224, 224}, Float: true}},
			outputs: goodOut,
			wantErr: true,
		},
		{
			name:    "renamed input",
			inputs:  []tensorInfo{{Name: "images", Dims: []int64{1, 3, 224, 224}, Float: true}},
			outputs: goodOut,
			wantErr: true,
		},
		{
			name:    "half precision",
			inputs:  []tensorInfo{{Name: "input", Dims: []int64{1, 3, 224, 224}}},
			outputs: goodOut,
			wantErr: true,
		},
		{name: "no outputs", inputs: goodIn, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkShapes(MobileNet, tt.inputs, tt.outputs)
			if !tt.wantErr {
				ok(t, err)
				return
			}
			if !errors.Is(err, ErrModelIncompatible) {
				t.Fatalf("got %v, want ErrModelIncompatible", err)
			}
			equals(t, KindOf(err), KindModelIncompatibility)
		})
	}
}

func TestArchitectureInputSize(t *testing.T) {
	equals(t, MobileNet.InputSize(), 3*224*224)
}

func TestInputErrorMessage(t *testing.T) {
	err := InputError(errors.New("image: unknown format"))
	equals(t, err.Error(), "invalid image data: image: unknown format")
	equals(t, KindOf(err), KindInput)
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatal("expected ErrInvalidImage in chain")
	}
}
