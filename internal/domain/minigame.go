package domain

// Minigame is an externally defined content unit, resolved by id
// through the content store. The room only cares about the minimum
// player count; ProxyURL is forwarded to clients untouched.
type Minigame struct {
	ID             string `json:"id" msgpack:"id"`
	Name           string `json:"name" msgpack:"name"`
	ProxyURL       string `json:"proxyUrl" msgpack:"proxyUrl"`
	MinimumPlayers int    `json:"minimumPlayers" msgpack:"minimumPlayers"`
}

// Pack is a curated group of minigames.
type Pack struct {
	ID          string   `json:"id" msgpack:"id"`
	Name        string   `json:"name" msgpack:"name"`
	MinigameIDs []string `json:"minigameIds" msgpack:"minigameIds"`
}

// Contains reports whether the pack lists the given minigame.
func (p *Pack) Contains(minigameID string) bool {
	for _, id := range p.MinigameIDs {
		if id == minigameID {
			return true
		}
	}
	return false
}
