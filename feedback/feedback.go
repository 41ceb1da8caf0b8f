package feedback

import (
	"context"
	"time"

	"github.com/korjavin/quizbot/quiz"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Target addresses the chat a cue is rendered in
type Target struct {
	ChatID     int64
	CallbackID string
}

// Surface renders cosmetic cues for a confirmed answer
type Surface interface {
	Haptic(ctx context.Context, target Target, status quiz.Status) error
	Sound(ctx context.Context, target Target, status quiz.Status) error
}

// Dispatcher runs effect requests against a Surface
type Dispatcher struct {
	surface Surface
	log     *zap.SugaredLogger
	timeout time.Duration
}

// NewDispatcher creates a dispatcher; a zero timeout means no deadline
func NewDispatcher(surface Surface, log *zap.SugaredLogger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{surface: surface, log: log, timeout: timeout}
}

// Dispatch runs all effects concurrently and returns once every one of them
// has settled. Failures are logged and never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, effects []quiz.Effect) {
	if len(effects) == 0 {
		return
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var g errgroup.Group
	for _, effect := range effects {
		effect := effect
		g.Go(func() error {
			if err := d.run(ctx, target, effect); err != nil {
				d.log.Warnw("feedback effect failed",
					"chat_id", target.ChatID,
					"effect", effect.Kind.String(),
					"status", effect.Status.String(),
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) run(ctx context.Context, target Target, effect quiz.Effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("recovered from panic in feedback effect", "effect", effect.Kind.String(), "panic", r)
		}
	}()

	switch effect.Kind {
	case quiz.EffectHaptic:
		return d.surface.Haptic(ctx, target, effect.Status)
	case quiz.EffectSound:
		return d.surface.Sound(ctx, target, effect.Status)
	}
	d.log.Debugw("ignoring unknown feedback effect", "effect", int(effect.Kind))
	return nil
}
