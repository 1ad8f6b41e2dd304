package core

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/keshava/maro/pkg/proxy/driver"
	"github.com/keshava/maro/pkg/proxy/registry"
	"github.com/keshava/maro/pkg/proxy/types"
)

// LifecycleHooks implements spec.md §10's signal-driven cleanup: on
// SIGINT/SIGTERM it deregisters self from every hash-map it ever
// published into and exits with the signal's conventional code; an
// explicit Shutdown call deregisters, stops the rejoin controller and
// closes the driver without exiting. Deregistration is idempotent; a
// second call is a no-op.
type LifecycleHooks struct {
	mu   sync.Mutex
	once sync.Once
	done bool

	store        registry.Store
	drv          driver.Driver
	log          types.Logger
	selfName     string
	selfHashName string
	jobName      string
	enableRejoin bool

	rejoinCtrl *RejoinController
	stopSignal chan os.Signal
	stopped    chan struct{}
}

// NewLifecycleHooks builds the hook set for one proxy instance.
func NewLifecycleHooks(store registry.Store, drv driver.Driver, log types.Logger, selfName, selfHashName, jobName string, enableRejoin bool, rejoinCtrl *RejoinController) *LifecycleHooks {
	return &LifecycleHooks{
		store:        store,
		drv:          drv,
		log:          log,
		selfName:     selfName,
		selfHashName: selfHashName,
		jobName:      jobName,
		enableRejoin: enableRejoin,
		rejoinCtrl:   rejoinCtrl,
	}
}

// InstallSignalHandler arranges for SIGINT/SIGTERM to trigger Deregister
// followed by os.Exit(128+signum), matching conventional shell exit codes.
// It returns immediately; the handling runs on its own goroutine.
func (h *LifecycleHooks) InstallSignalHandler() {
	h.stopSignal = make(chan os.Signal, 1)
	h.stopped = make(chan struct{})
	signal.Notify(h.stopSignal, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-h.stopSignal:
			h.log.Infof("received %s, deregistering before exit", sig)
			h.Deregister(context.Background())
			code := 128
			if s, ok := sig.(syscall.Signal); ok {
				code += int(s)
			}
			os.Exit(code)
		case <-h.stopped:
		}
	}()
}

// Shutdown stops the signal handler goroutine and deregisters, without
// calling os.Exit. Used by callers that manage their own process
// lifetime (tests, embedding applications).
func (h *LifecycleHooks) Shutdown(ctx context.Context) error {
	if h.stopped != nil {
		select {
		case <-h.stopped:
		default:
			close(h.stopped)
		}
	}
	if h.rejoinCtrl != nil {
		h.rejoinCtrl.Stop()
	}
	err := h.Deregister(ctx)
	if closeErr := h.drv.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Deregister removes self from its own hash-map and, when rejoin is
// enabled, from the container-mapping side-maps too. Safe to call more
// than once; only the first call has any effect.
func (h *LifecycleHooks) Deregister(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		h.mu.Lock()
		h.done = true
		h.mu.Unlock()

		err = h.store.HDel(ctx, h.selfHashName, h.selfName)
		if err != nil {
			h.log.Errorf("failed deregistering %s: %v", h.selfName, err)
		}

		if h.enableRejoin {
			if dErr := h.store.HDel(ctx, h.jobName+":component_name_to_container_name", h.selfName); dErr != nil {
				h.log.Errorf("failed deregistering container mapping for %s: %v", h.selfName, dErr)
			}
			if dErr := h.store.HDel(ctx, "component-container-mapping", h.selfName); dErr != nil {
				h.log.Errorf("failed deregistering component-container mapping for %s: %v", h.selfName, dErr)
			}
		}
	})
	return err
}

// Deregistered reports whether Deregister has already run.
func (h *LifecycleHooks) Deregistered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}
