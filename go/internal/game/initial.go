package game

import (
	"github.com/AmberMaze/thirty-challenge-code/go/internal/models"
)

// DefaultQuestionsPerSegment is the question count each segment starts
// with until the host configures otherwise.
const DefaultQuestionsPerSegment = 4

// NewInitialState returns the canonical pre-session state: phase
// CONFIG, no segment, the three fixed player slots with every special
// button available, empty score history, default segment settings.
func NewInitialState(gameID, hostCode string) models.GameState {
	players := make(map[models.PlayerSlot]models.Player, len(models.PlayerSlots))
	for _, slot := range models.PlayerSlots {
		players[slot] = defaultPlayer(slot)
	}

	settings := make(map[models.SegmentCode]int, len(models.SegmentOrder))
	for _, seg := range models.SegmentOrder {
		settings[seg] = DefaultQuestionsPerSegment
	}

	return models.GameState{
		GameID:          gameID,
		HostCode:        hostCode,
		Phase:           models.PhaseConfig,
		Players:         players,
		ScoreHistory:    []models.ScoreEvent{},
		SegmentSettings: settings,
	}
}

func defaultPlayer(slot models.PlayerSlot) models.Player {
	buttons := make(map[models.ButtonKind]bool, len(models.ButtonKinds))
	for _, b := range models.ButtonKinds {
		buttons[b] = true
	}
	return models.Player{
		ID:             string(slot),
		SpecialButtons: buttons,
	}
}
