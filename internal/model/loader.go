package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Opener builds a ready network from the weights at path.
type Opener func(path string, device Device) (Network, error)

// Loader owns the process's network and loads it lazily on first use.
//
// Get is safe for concurrent use. Callers that arrive while a load is in
// flight wait for it and share its outcome. A failed load is not remembered,
// so the next Get tries again.
type Loader struct {
	path   string
	device Device
	open   Opener

	group  singleflight.Group
	cached atomic.Pointer[loadedNetwork]

	mu     sync.Mutex
	closed bool
}

type loadedNetwork struct {
	net Network
}

type LoaderOption func(*Loader)

// WithDevice selects the compute device. Defaults to DeviceAuto.
func WithDevice(d Device) LoaderOption {
	return func(l *Loader) { l.device = d }
}

// WithOpener replaces the ONNX runtime opener.
func WithOpener(open Opener) LoaderOption {
	return func(l *Loader) { l.open = open }
}

func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		device: DeviceAuto,
		open:   ONNXOpener(MobileNet, ""),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns the cached network, loading it first if needed.
func (l *Loader) Get(ctx context.Context) (Network, error) {
	if c := l.cached.Load(); c != nil {
		return c.net, nil
	}

	ch := l.group.DoChan("model", func() (interface{}, error) {
		if c := l.cached.Load(); c != nil {
			return c.net, nil
		}
		if l.isClosed() {
			return nil, errLoaderClosed()
		}
		net, err := l.load()
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			net.Close()
			return nil, errLoaderClosed()
		}
		l.cached.Store(&loadedNetwork{net: net})
		return net, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Network), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) load() (Network, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Error("[Model] Weights file missing: ", l.path)
		return nil, &Error{Kind: KindConfiguration, Op: "load model",
			Err: fmt.Errorf("%w: %s", ErrModelNotFound, l.path)}
	}
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Op: "load model", Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Kind: KindConfiguration, Op: "load model",
			Err: fmt.Errorf("%w: %s is a directory", ErrModelNotFound, l.path)}
	}

	log.Info("[Model] Loading model from: ", l.path)
	start := time.Now()

	net, err := l.open(l.path, l.device)
	if err != nil {
		if KindOf(err) == KindUnknown {
			err = &Error{Kind: KindConfiguration, Op: "load model", Err: err}
		}
		log.Error("[Model] Couldn't load model: ", err.Error())
		return nil, err
	}

	log.WithFields(log.Fields{
		"path":    l.path,
		"device":  net.Device(),
		"elapsed": time.Since(start).String(),
	}).Info("[Model] Model ready")
	return net, nil
}

// Loaded reports whether a network is cached.
func (l *Loader) Loaded() bool { return l.cached.Load() != nil }

func (l *Loader) Path() string { return l.path }

// Close releases the cached network. It waits for a load in flight, and
// every later Get fails with ErrLoaderClosed.
func (l *Loader) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.group.Do("model", func() (interface{}, error) { return nil, nil })

	c := l.cached.Swap(nil)
	if c == nil {
		return nil
	}
	return c.net.Close()
}

func (l *Loader) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func errLoaderClosed() error {
	return &Error{Kind: KindConfiguration, Op: "load model", Err: ErrLoaderClosed}
}
