package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sidecore/side"
	"github.com/sidecore/side/internal/config"
	"github.com/sidecore/side/internal/metrics"
	"github.com/sidecore/side/internal/record"
)

// scenario wires a config.Config into live side library state: events,
// a notification tracer, an optional state-dump producer, optional
// metrics exposition, and an optional recording writer.
type scenario struct {
	log logrus.FieldLogger
	cfg *config.Config

	events      *side.EventsHandle
	eventDesc   map[string]*side.EventDescription
	plainCbs    map[string]side.CallbackFunc
	variadicCbs map[string]side.VariadicCallbackFunc
	tracer      *side.TracerHandle
	dump        *side.StatedumpHandle

	metrics *metrics.Metrics

	recordFile *os.File
	recorder   *record.Writer

	cancel context.CancelFunc
	done   chan struct{}
}

func newScenario(log logrus.FieldLogger, cfg *config.Config) (*scenario, error) {
	s := &scenario{
		log:         log,
		cfg:         cfg,
		eventDesc:   make(map[string]*side.EventDescription, len(cfg.Events)),
		plainCbs:    make(map[string]side.CallbackFunc, len(cfg.Events)),
		variadicCbs: make(map[string]side.VariadicCallbackFunc, len(cfg.Events)),
	}

	side.SetLogger(log)

	return s, nil
}

// Start registers every configured event and tracer, opens the
// recording sink if configured, starts the metrics server if
// configured, and kicks off the background call-dispatch loop.
func (s *scenario) Start(ctx context.Context) error {
	if s.cfg.Metrics.Addr != "" {
		s.metrics = metrics.New(s.log, s.cfg.Metrics)
		if err := s.metrics.Start(ctx); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
	}

	descs := make([]*side.EventDescription, 0, len(s.cfg.Events))

	for _, ec := range s.cfg.Events {
		flags := side.Flags(0)
		if ec.Variadic {
			flags = side.FlagVariadic
		}

		d := side.NewEvent(ec.Name, side.LogLevelInfo, flags)
		s.eventDesc[ec.Name] = d
		descs = append(descs, d)
	}

	h, serr := side.RegisterEvents(descs)
	if serr != side.OK {
		return fmt.Errorf("registering events: %w", serr)
	}

	s.events = h

	if s.metrics != nil {
		s.metrics.EventsRegistered.Set(float64(len(descs)))
	}

	if s.cfg.Record.Enabled {
		f, err := os.Create(s.cfg.Record.Path)
		if err != nil {
			return fmt.Errorf("creating record file %s: %w", s.cfg.Record.Path, err)
		}

		w, err := record.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("creating record writer: %w", err)
		}

		s.recordFile = f
		s.recorder = w
	}

	for _, ec := range s.cfg.Events {
		desc := s.eventDesc[ec.Name]
		name := ec.Name

		if ec.Variadic {
			cb := s.onVariadicCall(name)
			if serr := side.CallbackVariadicRegister(desc, cb, nil, ec.Key); serr != side.OK {
				return fmt.Errorf("attaching callback to %s: %w", name, serr)
			}

			s.variadicCbs[name] = cb
		} else {
			cb := s.onCall(name)
			if serr := side.CallbackRegister(desc, cb, nil, ec.Key); serr != side.OK {
				return fmt.Errorf("attaching callback to %s: %w", name, serr)
			}

			s.plainCbs[name] = cb
		}

		if s.metrics != nil {
			s.metrics.RegistryInserts.Inc()
		}
	}

	for _, tc := range s.cfg.Tracers {
		tracerName := tc.Name
		correlationID := uuid.NewString()

		tr, serr := side.EventNotificationRegister(func(action side.NotifyAction, priv any, events []*side.EventDescription) {
			s.log.WithFields(logrus.Fields{
				"tracer": tracerName,
				"action": action,
			}).Debug("tracer notified of event batch change")
		}, correlationID)
		if serr != side.OK {
			return fmt.Errorf("registering tracer %s: %w", tracerName, serr)
		}

		s.tracer = tr
	}

	if s.cfg.Statedump.Enabled {
		mode := side.StatedumpPolling
		if s.cfg.Statedump.AgentThread {
			mode = side.StatedumpAgentThread
		}

		if serr := side.CallbackRegister(side.StatedumpBeginEvent(), s.onStatedumpBegin, nil, 0); serr != side.OK {
			return fmt.Errorf("attaching statedump_begin callback: %w", serr)
		}

		if serr := side.CallbackRegister(side.StatedumpEndEvent(), s.onStatedumpEnd, nil, 0); serr != side.OK {
			return fmt.Errorf("attaching statedump_end callback: %w", serr)
		}

		// Registration queues the initial MatchAll dump, so the depth
		// gauge rises before the register call: in agent-thread mode
		// the dump has already drained by the time it returns.
		if s.metrics != nil {
			s.metrics.StatedumpQueueDepth.Inc()
		}

		d, serr := side.StatedumpRequestNotificationRegister(s.cfg.Statedump.Name, s.producePendingState, mode)
		if serr != side.OK {
			return fmt.Errorf("registering statedump producer: %w", serr)
		}

		s.dump = d
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)

	return nil
}

func (s *scenario) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.CallInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.cfg.Duration > 0 {
		timer := time.NewTimer(s.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	dumpKey, serr := side.RequestKey()
	if serr != side.OK {
		s.log.WithError(serr).Error("allocating statedump request key")
		return
	}

	tick := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			tick++

			for _, ec := range s.cfg.Events {
				desc := s.eventDesc[ec.Name]
				if ec.Variadic {
					side.CallVariadic(desc, ec.Name, map[string]any{"tick": time.Now().Unix()})
				} else {
					side.Call(desc, ec.Name)
				}

				if s.metrics != nil {
					s.metrics.CallsDispatched.Inc()
				}
			}

			if s.dump == nil {
				continue
			}

			// Every tenth tick, ask the producer to replay its state
			// so the statedump machinery stays busy for the whole run.
			if tick%10 == 0 {
				if serr := side.StatedumpRequest(dumpKey); serr != side.OK {
					s.log.WithError(serr).Warn("statedump request failed")
				} else if s.metrics != nil {
					s.metrics.StatedumpRequests.Inc()
					s.metrics.StatedumpQueueDepth.Inc()
				}
			}

			if !s.cfg.Statedump.AgentThread && side.StatedumpPollPendingRequests(s.dump) {
				if serr := side.StatedumpRunPendingRequests(s.dump); serr != side.OK {
					s.log.WithError(serr).Warn("running pending statedump requests failed")
				}
			}
		}
	}
}

func (s *scenario) onCall(name string) side.CallbackFunc {
	return func(desc *side.EventDescription, args side.ArgVec, priv any, addr uintptr) {
		s.log.WithField("event", name).Debug("dispatched call")
		s.writeRecord("call", name, 0)

		if s.metrics != nil {
			s.metrics.CallbacksInvoked.Inc()
		}
	}
}

func (s *scenario) onVariadicCall(name string) side.VariadicCallbackFunc {
	return func(desc *side.EventDescription, args side.ArgVec, v side.VarStruct, priv any, addr uintptr) {
		s.log.WithField("event", name).Debug("dispatched variadic call")
		s.writeRecord("call", name, 0)

		if s.metrics != nil {
			s.metrics.CallbacksInvoked.Inc()
		}
	}
}

func (s *scenario) onStatedumpBegin(desc *side.EventDescription, args side.ArgVec, priv any, addr uintptr) {
	name, _ := args.(string)
	s.log.WithField("producer", name).Debug("statedump begin")
	s.writeRecord("statedump_begin", name, 0)
}

func (s *scenario) onStatedumpEnd(desc *side.EventDescription, args side.ArgVec, priv any, addr uintptr) {
	name, _ := args.(string)
	s.log.WithField("producer", name).Debug("statedump end")
	s.writeRecord("statedump_end", name, 0)

	if s.metrics != nil {
		s.metrics.StatedumpCompletions.Inc()
		s.metrics.StatedumpQueueDepth.Dec()
	}
}

func (s *scenario) producePendingState(key *uint64) {
	s.log.WithField("producer", s.cfg.Statedump.Name).Debug("replaying state for pending request")
}

func (s *scenario) writeRecord(kind, event string, key uint64) {
	if s.recorder == nil {
		return
	}

	_ = s.recorder.Write(record.Entry{
		Kind:      kind,
		Event:     event,
		Key:       key,
		Timestamp: time.Now(),
	})
}

// Stop cancels the background dispatch loop, unregisters every
// handle, closes the recording sink, and stops the metrics server.
func (s *scenario) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	if s.dump != nil {
		side.StatedumpRequestNotificationUnregister(s.dump)
	}

	if s.tracer != nil {
		side.EventNotificationUnregister(s.tracer)
	}

	for _, ec := range s.cfg.Events {
		desc := s.eventDesc[ec.Name]

		var serr side.Error
		if cb, ok := s.variadicCbs[ec.Name]; ok {
			serr = side.CallbackVariadicUnregister(desc, cb, nil, ec.Key)
		} else if cb, ok := s.plainCbs[ec.Name]; ok {
			serr = side.CallbackUnregister(desc, cb, nil, ec.Key)
		} else {
			continue
		}

		if serr == side.OK && s.metrics != nil {
			s.metrics.RegistryRemoves.Inc()
		}
	}

	if s.events != nil {
		side.UnregisterEvents(s.events)

		if s.metrics != nil {
			s.metrics.EventsRegistered.Set(0)
		}
	}

	side.Exit()

	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			return fmt.Errorf("closing recorder: %w", err)
		}
	}

	if s.recordFile != nil {
		if err := s.recordFile.Close(); err != nil {
			return fmt.Errorf("closing record file: %w", err)
		}
	}

	if s.metrics != nil {
		if err := s.metrics.Stop(); err != nil {
			return fmt.Errorf("stopping metrics server: %w", err)
		}
	}

	return nil
}
