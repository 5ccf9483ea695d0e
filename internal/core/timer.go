package core

import (
	"time"

	"github.com/someonesays/roomserver/internal/domain"
)

// The ready-up coordinator: a single-shot, cancelable timer giving
// late-loading members a bounded grace period before the minigame
// force-starts. Armed only while WaitingForPlayersToLoad, once the host
// is ready and the ready count reached the minigame's minimum.
//
// Expiry is routed into the room's serialized execution context (the
// room lock) and guarded by a generation counter, so a canceled or
// superseded timer can never act on the room.

func (r *Room) armReadyTimerLocked() {
	r.timerGen++
	gen := r.timerGen
	r.readyDeadline = time.Now().Add(r.readyGrace)
	r.readyTimer = time.AfterFunc(r.readyGrace, func() {
		r.onReadyTimerFired(gen)
	})
	r.log.Info().Time("deadline", r.readyDeadline).Msg("ready timer armed")
}

func (r *Room) cancelReadyTimerLocked() {
	if r.readyTimer == nil {
		return
	}
	r.readyTimer.Stop()
	r.readyTimer = nil
	r.readyDeadline = time.Time{}
	r.timerGen++
}

func (r *Room) onReadyTimerFired(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.timerGen || r.readyTimer == nil {
		return
	}
	if r.status != domain.StatusWaitingForPlayersToLoad {
		return
	}
	r.readyTimer = nil
	r.readyDeadline = time.Time{}
	// Expiry starts the game without re-checking the minimum-player
	// quorum: members who left after arming may leave it below the
	// minigame's minimum. Disarm-on-quorum-loss handles the disconnect
	// path; whether this path should re-validate too is a policy knob.
	r.log.Info().Msg("ready timer expired, force starting")
	r.startGameLocked()
}
