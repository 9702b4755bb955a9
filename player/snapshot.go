package player

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/hollowforge/survivalgames/types"
)

// Snapshots are stored encoded so the registry never aliases live inventory
// slices, and so the format stays a real structured codec rather than the
// legacy key:value strings.

func encodeSnapshot(snap types.PlayerSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode player snapshot")
	}
	return raw, nil
}

func decodeSnapshot(raw []byte) (types.PlayerSnapshot, error) {
	var snap types.PlayerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, eris.Wrap(err, "failed to decode player snapshot")
	}
	return snap, nil
}
