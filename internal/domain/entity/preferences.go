package entity

import "medreminder/internal/domain/constant"

// Preferences holds the local sound and snooze settings of a user.
type Preferences struct {
	SoundEnabled  bool    `json:"sound_enabled"`
	Sound         string  `json:"sound"`
	Volume        float64 `json:"volume"`
	SnoozeMinutes int     `json:"snooze_minutes"`
}

// DefaultPreferences returns the preferences used before the user changes anything.
func DefaultPreferences() Preferences {
	return Preferences{
		SoundEnabled:  true,
		Sound:         constant.DefaultSoundID,
		Volume:        1,
		SnoozeMinutes: constant.DefaultSnoozeMinutes,
	}
}

// Normalize fills zero or out-of-range fields with defaults.
func (p Preferences) Normalize() Preferences {
	if p.Sound == "" {
		p.Sound = constant.DefaultSoundID
	}
	if p.Volume <= 0 || p.Volume > 1 {
		p.Volume = 1
	}
	if p.SnoozeMinutes <= 0 {
		p.SnoozeMinutes = constant.DefaultSnoozeMinutes
	}
	return p
}
