package core

import (
	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/protocol"
)

// sendFilter narrows a broadcast. The zero value reaches every member.
type sendFilter struct {
	// readyOnly restricts delivery to members that completed the
	// minigame handshake; minigame-scoped traffic uses it.
	readyOnly bool
	// exclude skips one member, usually the sender.
	exclude domain.UserID
}

// PublishResult reports fan-out delivery stats.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// broadcastLocked fans msg out to the current membership in join order.
// A member whose transport refuses the frame is counted and skipped;
// transport failures never propagate into the state machine.
func (r *Room) broadcastLocked(msg protocol.ServerMessage, f sendFilter) PublishResult {
	res := PublishResult{}
	for _, id := range r.order {
		m := r.members[id]
		if f.exclude != "" && id == f.exclude {
			continue
		}
		if f.readyOnly && !m.Ready {
			continue
		}
		if err := m.sess.Send(msg); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	if res.Dropped > 0 {
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).
			Stringer("opcode", msg.Opcode()).Int("sent_to", res.SentTo).Int("dropped", res.Dropped).
			Msg("broadcast dropped frames")
	}
	return res
}

// unicastLocked delivers msg to a single member, dropping silently on
// transport failure.
func (r *Room) unicastLocked(m *Member, msg protocol.ServerMessage) {
	if err := m.sess.Send(msg); err != nil {
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).
			Str("user", string(m.User.ID)).Stringer("opcode", msg.Opcode()).Msg("unicast dropped")
	}
}

// errorToLocked reports a recoverable per-message failure to the sender
// only. No state change, no broadcast.
func (r *Room) errorToLocked(m *Member, roomErr *domain.RoomError) {
	r.unicastLocked(m, &protocol.Error{Code: roomErr.Code, Message: roomErr.Message})
}
