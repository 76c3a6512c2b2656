package constant

// Sound is an alarm sound the user can pick.
type Sound struct {
	ID   string
	Name string
	URL  string
}

// DefaultSoundID is the sound used when the preference is empty or unknown.
const DefaultSoundID = "sound1"

// Sounds lists the available alarm sounds.
var Sounds = []Sound{
	{ID: "sound1", Name: "Bell", URL: "https://assets.mixkit.co/active_storage/sfx/2869/2869-preview.mp3"},
	{ID: "sound2", Name: "Chime", URL: "https://assets.mixkit.co/active_storage/sfx/1531/1531-preview.mp3"},
	{ID: "sound3", Name: "Alert", URL: "https://assets.mixkit.co/active_storage/sfx/1824/1824-preview.mp3"},
	{ID: "sound4", Name: "Soft", URL: "https://assets.mixkit.co/active_storage/sfx/1821/1821-preview.mp3"},
}

// LookupSound returns the sound with the given ID, falling back to the default.
func LookupSound(id string) Sound {
	for _, s := range Sounds {
		if s.ID == id {
			return s
		}
	}
	return Sounds[0]
}
