package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/someonesays/roomserver/internal/content"
	"github.com/someonesays/roomserver/internal/domain"
	"github.com/someonesays/roomserver/internal/protocol"
)

// DefaultReadyUpGrace is how long late-loading members get to catch up
// before a loaded minigame force-starts.
const DefaultReadyUpGrace = 120 * time.Second

// Room is the authoritative state of one multiplayer session. Every
// transition is a read-validate-mutate-broadcast sequence with no
// internal concurrency tolerance, so all of them run under mu: many
// rooms execute concurrently, but each room is single-threaded.
//
// Content lookups during a settings change happen while holding mu. A
// stalled lookup blocks only this room's next action; preconditions are
// still re-checked after the lookup completes.
type Room struct {
	mu sync.Mutex

	id         domain.RoomID
	content    content.Store
	readyGrace time.Duration
	log        zerolog.Logger

	status      domain.RoomStatus
	host        domain.UserID
	minigame    *domain.Minigame
	pack        *domain.Pack
	sharedState any

	// members is keyed by user id; order preserves join order, which
	// host migration relies on for a deterministic successor.
	members map[domain.UserID]*Member
	order   []domain.UserID

	readyTimer    *time.Timer
	readyDeadline time.Time
	timerGen      uint64

	// closed marks a room whose last member already left; a join that
	// raced the teardown sees it and gets rejected.
	closed bool
}

func NewRoom(id domain.RoomID, store content.Store, readyGrace time.Duration) *Room {
	if readyGrace <= 0 {
		readyGrace = DefaultReadyUpGrace
	}
	return &Room{
		id:         id,
		content:    store,
		readyGrace: readyGrace,
		log:        log.With().Str("module", "core.room").Str("room", string(id)).Logger(),
		status:     domain.StatusLobby,
		members:    make(map[domain.UserID]*Member),
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Host returns the current host id, empty for a closed room.
func (r *Room) Host() domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

func (r *Room) Status() domain.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ErrRoomClosed reports a join that raced the room's teardown.
var ErrRoomClosed = errors.New("room closed")

// Join attaches a verified identity with its live connection as a new
// member. The first member becomes host. On success the new connection
// receives the full GetInformation snapshot and everyone else a
// PlayerJoin. The capacity and duplicate checks run here, under the
// room's lock, regardless of what the handshake saw earlier.
func (r *Room) Join(user domain.User, sess Session) *domain.RoomError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.NewRoomError(domain.CodeServersBusy, "room is shutting down")
	}
	if _, ok := r.members[user.ID]; ok {
		return domain.NewRoomError(domain.CodeAlreadyInGame, "identity already present in room")
	}
	if len(r.members) >= domain.MaxMembers {
		return domain.NewRoomError(domain.CodeReachedMaximumPlayerLimit, "room is full")
	}

	m := newMember(user, sess)
	if len(r.members) == 0 {
		r.host = user.ID
	}
	r.members[user.ID] = m
	r.order = append(r.order, user.ID)

	r.unicastLocked(m, r.snapshotLocked(user.ID))
	r.broadcastLocked(&protocol.PlayerJoin{Player: m.info()}, sendFilter{exclude: user.ID})
	r.log.Info().Str("user", string(user.ID)).Int("members", len(r.members)).Msg("member joined")
	return nil
}

// Disconnect removes a member after its connection died. connID guards
// idempotency: a stale teardown for a connection that no longer backs
// the member does nothing. Returns true once the room has emptied and
// should be dropped from the registry.
func (r *Room) Disconnect(userID domain.UserID, connID string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[userID]
	if !ok || m.sess.ID() != connID {
		return false
	}
	delete(r.members, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.Info().Str("user", string(userID)).Int("members", len(r.members)).Msg("member left")

	if len(r.members) == 0 {
		r.closed = true
		r.cancelReadyTimerLocked()
		return true
	}

	r.broadcastLocked(&protocol.PlayerLeft{User: userID}, sendFilter{})

	if r.host == userID {
		// Earliest-joined survivor takes over; insertion order makes
		// the choice deterministic.
		r.host = r.order[0]
		r.broadcastLocked(&protocol.HostTransferred{User: r.host}, sendFilter{})
		r.log.Info().Str("host", string(r.host)).Msg("host migrated")
		if r.status != domain.StatusLobby {
			r.endGameLocked(domain.EndHostLeft, nil)
		}
		return false
	}

	switch r.status {
	case domain.StatusStarted:
		if r.minigame != nil && len(r.members) < r.minigame.MinimumPlayers {
			r.endGameLocked(domain.EndFailedToSatisfyMinimumPlayers, nil)
		}
	case domain.StatusWaitingForPlayersToLoad:
		// Quorum loss only disarms the timer; the load phase itself
		// continues (the host can still end it).
		if r.readyTimer != nil && r.minigame != nil && r.readyCountLocked() < r.minigame.MinimumPlayers {
			r.cancelReadyTimerLocked()
			r.log.Info().Msg("ready timer disarmed, quorum lost")
		}
	}
	return false
}

// HandleMessage runs one decoded client message through the state
// machine. Failures are unicast to the sender as Error payloads and
// never affect other members or the connection.
func (r *Room) HandleMessage(userID domain.UserID, connID string, msg protocol.ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.members[userID]
	if !ok || sender.sess.ID() != connID {
		// Frames raced a kick or disconnect; nothing to answer to.
		return
	}

	var roomErr *domain.RoomError
	switch m := msg.(type) {
	case *protocol.Ping:
		r.unicastLocked(sender, &protocol.Pong{})
	case *protocol.KickPlayer:
		roomErr = r.kickLocked(sender, m.User)
	case *protocol.TransferHost:
		roomErr = r.transferHostLocked(sender, m.User)
	case *protocol.SetRoomSettings:
		roomErr = r.setSettingsLocked(sender, m)
	case *protocol.BeginGame:
		roomErr = r.beginGameLocked(sender)
	case *protocol.MinigameHandshake:
		roomErr = r.minigameHandshakeLocked(sender)
	case *protocol.MinigameEndGame:
		roomErr = r.endGameByHostLocked(sender, m.Prizes)
	case *protocol.MinigameSetGameState:
		roomErr = r.setGameStateLocked(sender, m.State)
	case *protocol.MinigameSetPlayerState:
		roomErr = r.setPlayerStateLocked(sender, m.User, m.State)
	case *protocol.MinigameSendGameMessage:
		roomErr = r.sendGameMessageLocked(sender, m.Message)
	case *protocol.MinigameSendPlayerMessage:
		roomErr = r.sendPlayerMessageLocked(sender, m.Message)
	case *protocol.MinigameSendPrivateMessage:
		roomErr = r.sendPrivateMessageLocked(sender, m.User, m.Message)
	}
	if roomErr != nil {
		r.errorToLocked(sender, roomErr)
	}
}

// requireHostLobbyLocked bundles the two most common preconditions.
// Callers with awaited lookups in between must call it again before
// mutating.
func (r *Room) requireHostLobbyLocked(sender *Member) *domain.RoomError {
	if r.host != sender.User.ID {
		return domain.NewRoomError(domain.CodeNotHost, "only the host may do this")
	}
	if r.status != domain.StatusLobby {
		return domain.NewRoomError(domain.CodeNotInLobby, "only allowed in the lobby")
	}
	return nil
}

func (r *Room) kickLocked(sender *Member, target domain.UserID) *domain.RoomError {
	if err := r.requireHostLobbyLocked(sender); err != nil {
		return err
	}
	if target == sender.User.ID {
		return domain.NewRoomError(domain.CodeInvalidPayload, "cannot kick yourself")
	}
	victim, ok := r.members[target]
	if !ok {
		return domain.NewRoomError(domain.CodeUnknownPlayer, "no such member")
	}
	// Forced close; membership cleanup rides the normal disconnect path
	// once the transport tears down.
	victim.sess.CloseWithReason(domain.CodeKickedFromRoom)
	r.log.Info().Str("user", string(target)).Msg("member kicked")
	return nil
}

func (r *Room) transferHostLocked(sender *Member, target domain.UserID) *domain.RoomError {
	if err := r.requireHostLobbyLocked(sender); err != nil {
		return err
	}
	if target == sender.User.ID {
		return domain.NewRoomError(domain.CodeInvalidPayload, "already the host")
	}
	if _, ok := r.members[target]; !ok {
		return domain.NewRoomError(domain.CodeUnknownPlayer, "no such member")
	}
	r.host = target
	r.broadcastLocked(&protocol.HostTransferred{User: target}, sendFilter{})
	r.log.Info().Str("host", string(target)).Msg("host transferred")
	return nil
}

func (r *Room) setSettingsLocked(sender *Member, req *protocol.SetRoomSettings) *domain.RoomError {
	if err := r.requireHostLobbyLocked(sender); err != nil {
		return err
	}

	// Merge the partial update over the committed values.
	minigameID := r.settingsLocked().MinigameID
	packID := r.settingsLocked().PackID
	if req.MinigameID != nil {
		minigameID = *req.MinigameID
	}
	if req.PackID != nil {
		packID = *req.PackID
	}

	minigame, pack, lookupErr := r.resolveContent(minigameID, packID)
	if lookupErr != nil {
		return lookupErr
	}

	// The lookup awaited an external call; host/lobby preconditions get
	// re-checked before any mutation.
	if err := r.requireHostLobbyLocked(sender); err != nil {
		return err
	}
	if pack != nil {
		if minigame == nil {
			return domain.NewRoomError(domain.CodeInvalidSettings, "a pack requires a selected minigame")
		}
		if !pack.Contains(minigame.ID) {
			return domain.NewRoomError(domain.CodeInvalidSettings, "minigame is not part of the pack")
		}
	}

	r.minigame = minigame
	r.pack = pack
	r.broadcastLocked(&protocol.RoomSettingsUpdated{
		Settings: r.settingsLocked(),
		Minigame: minigame,
		Pack:     pack,
	}, sendFilter{})
	r.log.Info().Str("minigame", minigameID).Str("pack", packID).Msg("settings updated")
	return nil
}

// resolveContent fetches the referenced content while holding the
// room's execution right; no other mutator can interleave.
func (r *Room) resolveContent(minigameID, packID string) (*domain.Minigame, *domain.Pack, *domain.RoomError) {
	var (
		minigame *domain.Minigame
		pack     *domain.Pack
		err      error
	)
	ctx := context.Background()
	if minigameID != "" {
		if minigame, err = r.content.Minigame(ctx, minigameID); err != nil {
			if errors.Is(err, content.ErrNotFound) {
				return nil, nil, domain.NewRoomError(domain.CodeInvalidSettings, "unknown minigame")
			}
			r.log.Warn().Err(err).Msg("minigame lookup failed")
			return nil, nil, domain.NewRoomError(domain.CodeInvalidSettings, "minigame lookup failed")
		}
	}
	if packID != "" {
		if pack, err = r.content.Pack(ctx, packID); err != nil {
			if errors.Is(err, content.ErrNotFound) {
				return nil, nil, domain.NewRoomError(domain.CodeInvalidSettings, "unknown pack")
			}
			r.log.Warn().Err(err).Msg("pack lookup failed")
			return nil, nil, domain.NewRoomError(domain.CodeInvalidSettings, "pack lookup failed")
		}
	}
	return minigame, pack, nil
}

func (r *Room) beginGameLocked(sender *Member) *domain.RoomError {
	if r.host != sender.User.ID {
		return domain.NewRoomError(domain.CodeNotHost, "only the host may do this")
	}
	if r.status != domain.StatusLobby {
		return domain.NewRoomError(domain.CodeGameInProgress, "a game is already in progress")
	}
	if r.minigame == nil {
		return domain.NewRoomError(domain.CodeMinigameNotSelected, "select a minigame first")
	}
	if len(r.members) < r.minigame.MinimumPlayers {
		return domain.NewRoomError(domain.CodeNotEnoughPlayers, "not enough players for this minigame")
	}

	for _, m := range r.members {
		m.Ready = false
		m.State = nil
	}
	r.status = domain.StatusWaitingForPlayersToLoad
	r.broadcastLocked(&protocol.LoadMinigame{
		Minigame: *r.minigame,
		Pack:     r.pack,
		Players:  r.rosterLocked(),
	}, sendFilter{})
	r.log.Info().Str("minigame", r.minigame.ID).Msg("game loading")
	return nil
}

func (r *Room) minigameHandshakeLocked(sender *Member) *domain.RoomError {
	if r.status == domain.StatusLobby {
		return domain.NewRoomError(domain.CodeNoGameInProgress, "no minigame is loading")
	}
	if sender.Ready {
		// Repeated handshakes are a no-op, not an error.
		return nil
	}
	sender.Ready = true
	r.broadcastLocked(&protocol.MinigamePlayerReady{User: sender.User.ID}, sendFilter{})

	if r.status != domain.StatusWaitingForPlayersToLoad {
		// Already running: a late joiner is simply marked ready.
		return nil
	}
	if r.readyCountLocked() == len(r.members) {
		r.startGameLocked()
		return nil
	}
	host, ok := r.members[r.host]
	if ok && host.Ready && r.readyTimer == nil &&
		r.minigame != nil && r.readyCountLocked() >= r.minigame.MinimumPlayers {
		r.armReadyTimerLocked()
	}
	return nil
}

func (r *Room) startGameLocked() {
	r.cancelReadyTimerLocked()
	r.status = domain.StatusStarted
	r.broadcastLocked(&protocol.MinigameStartGame{}, sendFilter{})
	r.log.Info().Msg("game started")
}

func (r *Room) endGameByHostLocked(sender *Member, prizes []domain.Prize) *domain.RoomError {
	if r.host != sender.User.ID {
		return domain.NewRoomError(domain.CodeNotHost, "only the host may end the game")
	}
	if r.status == domain.StatusLobby {
		return domain.NewRoomError(domain.CodeNoGameInProgress, "no game to end")
	}
	if len(prizes) == 0 {
		r.endGameLocked(domain.EndForcefulEnd, nil)
		return nil
	}
	settled, settleErr := SettlePrizes(prizes, func(id domain.UserID) bool {
		_, ok := r.members[id]
		return ok
	})
	if settleErr != nil {
		return settleErr
	}
	for _, p := range settled {
		r.members[p.User].Points += domain.TierPoints[p.Tier]
	}
	r.endGameLocked(domain.EndMinigameEnded, settled)
	return nil
}

// endGameLocked performs the shared return-to-lobby transition for all
// end reasons.
func (r *Room) endGameLocked(reason domain.EndReason, prizes []domain.Prize) {
	r.cancelReadyTimerLocked()
	for _, m := range r.members {
		m.Ready = false
		m.State = nil
	}
	r.sharedState = nil
	r.status = domain.StatusLobby
	r.broadcastLocked(&protocol.EndMinigame{Reason: reason, Prizes: prizes}, sendFilter{})
	r.log.Info().Str("reason", string(reason)).Msg("game ended")
}

func (r *Room) setGameStateLocked(sender *Member, state any) *domain.RoomError {
	if err := r.requireHostInGameLocked(sender); err != nil {
		return err
	}
	r.sharedState = state
	r.broadcastLocked(&protocol.GameStateUpdated{State: state}, sendFilter{readyOnly: true, exclude: sender.User.ID})
	return nil
}

func (r *Room) setPlayerStateLocked(sender *Member, target domain.UserID, state any) *domain.RoomError {
	if err := r.requireHostInGameLocked(sender); err != nil {
		return err
	}
	m, ok := r.members[target]
	if !ok {
		return domain.NewRoomError(domain.CodeUnknownPlayer, "no such member")
	}
	m.State = state
	r.broadcastLocked(&protocol.PlayerStateUpdated{User: target, State: state}, sendFilter{readyOnly: true, exclude: sender.User.ID})
	return nil
}

func (r *Room) sendGameMessageLocked(sender *Member, message protocol.Blob) *domain.RoomError {
	if err := r.requireHostInGameLocked(sender); err != nil {
		return err
	}
	r.broadcastLocked(&protocol.GameMessage{Message: message}, sendFilter{readyOnly: true, exclude: sender.User.ID})
	return nil
}

func (r *Room) sendPlayerMessageLocked(sender *Member, message protocol.Blob) *domain.RoomError {
	if r.status == domain.StatusLobby {
		return domain.NewRoomError(domain.CodeNoGameInProgress, "no game in progress")
	}
	r.broadcastLocked(&protocol.PlayerMessage{User: sender.User.ID, Message: message},
		sendFilter{readyOnly: true, exclude: sender.User.ID})
	return nil
}

// sendPrivateMessageLocked relays a blob between the host and a single
// member: the host addresses target, anyone else reaches the host.
func (r *Room) sendPrivateMessageLocked(sender *Member, target domain.UserID, message protocol.Blob) *domain.RoomError {
	if r.status == domain.StatusLobby {
		return domain.NewRoomError(domain.CodeNoGameInProgress, "no game in progress")
	}
	to := r.host
	if sender.User.ID == r.host {
		if target == "" {
			return domain.NewRoomError(domain.CodeInvalidPayload, "private message needs a target")
		}
		to = target
	}
	recipient, ok := r.members[to]
	if !ok {
		return domain.NewRoomError(domain.CodeUnknownPlayer, "no such member")
	}
	r.unicastLocked(recipient, &protocol.PrivateMessage{User: sender.User.ID, Message: message})
	return nil
}

func (r *Room) requireHostInGameLocked(sender *Member) *domain.RoomError {
	if r.host != sender.User.ID {
		return domain.NewRoomError(domain.CodeNotHost, "only the host may do this")
	}
	if r.status == domain.StatusLobby {
		return domain.NewRoomError(domain.CodeNoGameInProgress, "no game in progress")
	}
	return nil
}

func (r *Room) readyCountLocked() int {
	n := 0
	for _, m := range r.members {
		if m.Ready {
			n++
		}
	}
	return n
}

func (r *Room) settingsLocked() domain.RoomSettings {
	s := domain.RoomSettings{}
	if r.minigame != nil {
		s.MinigameID = r.minigame.ID
	}
	if r.pack != nil {
		s.PackID = r.pack.ID
	}
	return s
}

func (r *Room) rosterLocked() []protocol.MemberInfo {
	out := make([]protocol.MemberInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id].info())
	}
	return out
}

func (r *Room) snapshotLocked(self domain.UserID) *protocol.GetInformation {
	info := &protocol.GetInformation{
		User: self,
		Room: protocol.RoomInfo{
			ID:          r.id,
			Host:        r.host,
			Status:      r.status,
			Settings:    r.settingsLocked(),
			SharedState: r.sharedState,
		},
		Members:  r.rosterLocked(),
		Minigame: r.minigame,
		Pack:     r.pack,
	}
	if !r.readyDeadline.IsZero() {
		deadline := r.readyDeadline
		info.Room.ReadyDeadline = &deadline
	}
	return info
}
