// Package intent is the deterministic rule-based classifier over raw user
// text. It never calls a model: the same input always yields the same
// ordered match list, and there are no side effects.
package intent

// Intent is the closed set of goals the rule router can recognize.
// New intents are additions to this enum plus the rule table, not ad-hoc
// string comparisons.
type Intent string

const (
	LaunchApp    Intent = "launch_app"
	ListFiles    Intent = "list_files"
	SearchFiles  Intent = "search_files"
	ReadFile     Intent = "read_file"
	EditText     Intent = "edit_text"
	MoveFiles    Intent = "move_files"
	DeleteFile   Intent = "delete_file"
	SystemInfo   Intent = "system_info"
	TTSMute      Intent = "tts_mute"
	TTSUnmute    Intent = "tts_unmute"
	TTSSetVoice  Intent = "tts_set_voice"
	TTSSetSpeed  Intent = "tts_set_speed"
	TTSSetVolume Intent = "tts_set_volume"
	UpdateAppMap Intent = "update_app_map"
	SystemTime   Intent = "system_time"
	SystemDate   Intent = "system_date"
	Battery      Intent = "system_battery"
	CPUUsage     Intent = "system_cpu"
	RAMUsage     Intent = "system_ram"
	ClipboardGet Intent = "system_clipboard_get"
	ClipboardSet Intent = "system_clipboard_set"
	OpenURL      Intent = "system_open_url"
	Weather      Intent = "system_weather"
	Joke         Intent = "system_joke"
	SummarizePDF Intent = "summarize_pdf"
	LLMChat      Intent = "llm_chat"
)

// Match pairs a classified intent with its extracted parameters.
type Match struct {
	Intent Intent
	Params map[string]any
}

// NeedsConfirmation reports whether this match must pass the confirmation
// gate before execution. Destructive fallbacks always carry the flag.
func (m Match) NeedsConfirmation() bool {
	v, _ := m.Params["needs_confirmation"].(bool)
	return v
}

// Query returns the raw-text query parameter, if any.
func (m Match) Query() string {
	v, _ := m.Params["query"].(string)
	return v
}
