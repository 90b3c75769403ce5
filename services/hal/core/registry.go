package core

import (
	"errors"
	"sync"

	"pipower-go/errcode"
)

// Registry owns every digital line the process uses.
//
// Ownership changes (Claim/Release) are guarded by mu. Line traffic is
// serialised by tx: a caller performs one logical transaction (an ADC read,
// one LED step) inside Transact, so writes from different transactions never
// interleave. ReleaseAll takes tx first, so it waits for the transaction in
// flight and no transaction can start afterwards.
type Registry struct {
	tx sync.Mutex
	mu sync.Mutex

	pins     PinFactory
	owners   map[int]string
	handles  map[int]GPIOHandle
	released bool
}

func NewRegistry(pins PinFactory) *Registry {
	return &Registry{
		pins:    pins,
		owners:  make(map[int]string),
		handles: make(map[int]GPIOHandle),
	}
}

// Claim reserves line n for devID.
func (r *Registry) Claim(devID string, n int) (GPIOHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil, errcode.Released
	}
	if owner, inUse := r.owners[n]; inUse {
		if owner == devID {
			return r.handles[n], nil
		}
		return nil, &errcode.E{C: errcode.PinInUse, Op: devID, Msg: "owned by " + owner}
	}
	h, ok := r.pins.ByNumber(n)
	if !ok || h == nil {
		return nil, errcode.UnknownPin
	}
	r.owners[n] = devID
	r.handles[n] = h
	return h, nil
}

// Release returns line n to an unconfigured input, if devID owns it.
func (r *Registry) Release(devID string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[n] != devID {
		return nil
	}
	err := r.handles[n].ConfigureInput(PullNone)
	delete(r.owners, n)
	delete(r.handles, n)
	return err
}

// Owner reports who holds line n.
func (r *Registry) Owner(n int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[n]
	return o, ok
}

// Transact runs fn with exclusive access to the lines.
func (r *Registry) Transact(fn func() error) error {
	r.tx.Lock()
	defer r.tx.Unlock()
	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	if released {
		return errcode.Released
	}
	return fn()
}

// ReleaseAll takes exclusive ownership of every line and returns them all to
// unconfigured inputs. Later transactions fail with errcode.Released.
func (r *Registry) ReleaseAll() error {
	r.tx.Lock()
	defer r.tx.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for n, h := range r.handles {
		if err := h.ConfigureInput(PullNone); err != nil {
			errs = append(errs, errcode.Wrap(errcode.HardwareIO, r.owners[n], err))
		}
	}
	r.owners = make(map[int]string)
	r.handles = make(map[int]GPIOHandle)
	r.released = true
	return errors.Join(errs...)
}
