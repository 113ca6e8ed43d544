package babelfish

// Config points at the data directory and the user-driven settings file.
// Only the settings file is live-reloaded, and the host selection in it
// still applies at the next boot only.
type Config struct {
	DataDir  string `json:"dataDir"`
	Settings string `json:"settings"`
}

// Settings is the user-editable babelfish.yml.
type Settings struct {
	// Host is the default emulator name when nothing has been persisted
	// through the command-mode menu.
	Host string `yaml:"host"`
	// DebugAddr enables the websocket debug surface when non-empty.
	DebugAddr string `yaml:"debugAddr"`
}
