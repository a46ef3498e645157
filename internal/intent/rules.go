package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// rule is one keyword predicate in the ordered table. The first matching
// rule wins for a clause, so table order is precedence order.
type rule struct {
	intent Intent
	match  func(text string) bool
}

func containsAny(text string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// rules is the precedence-ordered predicate table. Note that broad
// predicates intentionally shadow narrower ones declared later: "cpu" in a
// clause classifies as system_info before system_cpu is ever consulted.
var rules = []rule{
	{LaunchApp, func(t string) bool {
		return containsAny(t, "launch", "open app", "start app", "run app") ||
			(strings.HasPrefix(t, "open ") && !strings.HasPrefix(t, "open url"))
	}},
	{ListFiles, func(t string) bool {
		return containsAny(t, "list files", "show files", "files in", "what files")
	}},
	{SearchFiles, func(t string) bool {
		return containsAny(t, "search for", "find file", "look for", "search file")
	}},
	{ReadFile, func(t string) bool { return strings.Contains(t, "read") }},
	{EditText, func(t string) bool { return containsAny(t, "edit", "change", "modify") }},
	{MoveFiles, func(t string) bool { return containsAny(t, "move", "copy", "relocate") }},
	{DeleteFile, func(t string) bool { return containsAny(t, "delete", "remove", "erase") }},
	{SystemInfo, func(t string) bool {
		return containsAny(t, "system info", "list running apps", "show processes", "cpu", "memory")
	}},
	{TTSMute, func(t string) bool { return containsAny(t, "mute tts", "mute voice", "mute speech") }},
	{TTSUnmute, func(t string) bool { return containsAny(t, "unmute tts", "unmute voice", "unmute speech") }},
	{TTSSetVoice, func(t string) bool { return strings.Contains(t, "set voice") }},
	{TTSSetSpeed, func(t string) bool { return containsAny(t, "set speed", "set rate") }},
	{TTSSetVolume, func(t string) bool { return strings.Contains(t, "set volume") }},
	{UpdateAppMap, func(t string) bool { return containsAny(t, "add app", "map app") }},
	{SystemTime, func(t string) bool { return containsAny(t, "what time", "current time", "time is it") }},
	{SystemDate, func(t string) bool { return containsAny(t, "what date", "current date", "date is it", "today") }},
	{Battery, func(t string) bool { return containsAny(t, "battery", "battery percentage", "battery level") }},
	{CPUUsage, func(t string) bool { return containsAny(t, "cpu usage", "cpu percent", "processor usage") }},
	{RAMUsage, func(t string) bool { return containsAny(t, "ram usage", "memory usage", "ram percent") }},
	{ClipboardSet, func(t string) bool { return strings.HasPrefix(t, "set clipboard to ") }},
	{ClipboardGet, func(t string) bool { return containsAny(t, "clipboard", "get clipboard", "show clipboard") }},
	{OpenURL, func(t string) bool {
		return strings.HasPrefix(t, "open url ") || strings.HasPrefix(t, "go to ")
	}},
	{Weather, func(t string) bool { return containsAny(t, "weather", "forecast") }},
	{Joke, func(t string) bool { return containsAny(t, "joke", "make me laugh") }},
	{SummarizePDF, func(t string) bool {
		return containsAny(t, "summarize pdf", "summarize this pdf", "summarize file") || strings.HasPrefix(t, "summarize")
	}},
}

// Parameter extraction patterns, scoped per intent. All are case-insensitive
// so extraction can run against the original-cased clause (replacement
// content keeps the user's capitalization).
var (
	reListDir      = regexp.MustCompile(`(?i)(?:in|from)\s+([\w\\/.-]+)`)
	reEdit         = regexp.MustCompile(`(?i)edit(?: line (\d+))? in (\S+) to (.+)`)
	reMove         = regexp.MustCompile(`(?i)move (\S+) to (\S+)`)
	reSetVoice     = regexp.MustCompile(`(?i)set voice to ([\w\s-]+)`)
	reSetSpeed     = regexp.MustCompile(`(?i)(?:set speed|set rate) to (\d+)`)
	reSetVolume    = regexp.MustCompile(`(?i)set volume to ([0-9.]+)`)
	reAppMap       = regexp.MustCompile(`(?i)(?:add|map) app ([\w\s-]+) (?:as|to) ([\w\\/.-]+)`)
	reClipboardSet = regexp.MustCompile(`(?i)set clipboard to (.+)`)
	reOpenURL      = regexp.MustCompile(`(?i)(?:open url|go to) (.+)`)
	reWeather      = regexp.MustCompile(`(?i)weather in ([\w\s]+)`)
	reSummarize    = regexp.MustCompile(`(?i)summarize (\S+\.pdf)`)
)

// Route splits the input on the literal conjunction " and " and classifies
// each clause against the rule table. A clause with no matching predicate
// inherits the previous clause's verb ("read a.txt and b.txt"); if there is
// nothing to inherit it falls back to llm_chat with the raw clause as query.
// The result is never empty.
func Route(input string) []Match {
	var clauses []string
	for _, part := range strings.Split(input, " and ") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			clauses = append(clauses, trimmed)
		}
	}
	if len(clauses) == 0 {
		return []Match{{Intent: LLMChat, Params: map[string]any{"query": strings.TrimSpace(input)}}}
	}

	results := make([]Match, 0, len(clauses))
	var lastVerb Intent
	for _, clause := range clauses {
		verb := classify(strings.ToLower(clause))
		if verb == "" {
			verb = lastVerb
		}
		if verb != "" {
			lastVerb = verb
		}
		results = append(results, extract(verb, clause))
	}
	return results
}

// classify returns the first rule-table intent matching the lowercased
// clause, or "" when nothing matches.
func classify(lower string) Intent {
	for _, r := range rules {
		if r.match(lower) {
			return r.intent
		}
	}
	return ""
}

// extract builds the parameter map for a classified clause. Failed pattern
// extraction on a destructive intent degrades to a raw query tagged
// needs_confirmation so the gate fires before anything runs.
func extract(verb Intent, clause string) Match {
	switch verb {
	case ListFiles:
		dir := "."
		if m := reListDir.FindStringSubmatch(clause); m != nil {
			dir = m[1]
		}
		return Match{Intent: ListFiles, Params: map[string]any{"directory": dir}}

	case SearchFiles, ReadFile, LaunchApp:
		return Match{Intent: verb, Params: map[string]any{"query": clause}}

	case EditText:
		if m := reEdit.FindStringSubmatch(clause); m != nil {
			params := map[string]any{
				"file":      m[2],
				"operation": "replace",
				"content":   m[3],
			}
			if m[1] != "" {
				line, _ := strconv.Atoi(m[1])
				params["line"] = line
			}
			return Match{Intent: EditText, Params: params}
		}
		return Match{Intent: EditText, Params: map[string]any{"query": clause, "needs_confirmation": true}}

	case MoveFiles:
		if m := reMove.FindStringSubmatch(clause); m != nil {
			return Match{Intent: MoveFiles, Params: map[string]any{
				"src": m[1], "dst": m[2], "copy": false, "needs_confirmation": true,
			}}
		}
		return Match{Intent: MoveFiles, Params: map[string]any{"query": clause, "needs_confirmation": true}}

	case DeleteFile:
		return Match{Intent: DeleteFile, Params: map[string]any{"query": clause, "needs_confirmation": true}}

	case SystemInfo, TTSMute, TTSUnmute, SystemTime, SystemDate, Battery, CPUUsage, RAMUsage, ClipboardGet, Joke:
		return Match{Intent: verb, Params: map[string]any{}}

	case TTSSetVoice:
		voice := ""
		if m := reSetVoice.FindStringSubmatch(clause); m != nil {
			voice = strings.TrimSpace(m[1])
		}
		return Match{Intent: TTSSetVoice, Params: map[string]any{"voice": voice}}

	case TTSSetSpeed:
		speed := 200
		if m := reSetSpeed.FindStringSubmatch(clause); m != nil {
			speed, _ = strconv.Atoi(m[1])
		}
		return Match{Intent: TTSSetSpeed, Params: map[string]any{"speed": speed}}

	case TTSSetVolume:
		volume := 1.0
		if m := reSetVolume.FindStringSubmatch(clause); m != nil {
			raw := strings.TrimRight(m[1], ".")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				volume = v
			}
		}
		return Match{Intent: TTSSetVolume, Params: map[string]any{"volume": volume}}

	case UpdateAppMap:
		if m := reAppMap.FindStringSubmatch(clause); m != nil {
			return Match{Intent: UpdateAppMap, Params: map[string]any{
				"app_name": strings.TrimSpace(m[1]),
				"path":     strings.TrimSpace(m[2]),
			}}
		}
		// No usable mapping — fall through to chat like any unmatched clause.
		return Match{Intent: LLMChat, Params: map[string]any{"query": clause}}

	case ClipboardSet:
		value := ""
		if m := reClipboardSet.FindStringSubmatch(clause); m != nil {
			value = m[1]
		}
		return Match{Intent: ClipboardSet, Params: map[string]any{"value": value}}

	case OpenURL:
		url := ""
		if m := reOpenURL.FindStringSubmatch(clause); m != nil {
			url = m[1]
		}
		return Match{Intent: OpenURL, Params: map[string]any{"url": url}}

	case Weather:
		location := "your area"
		if m := reWeather.FindStringSubmatch(clause); m != nil {
			location = strings.TrimSpace(m[1])
		}
		return Match{Intent: Weather, Params: map[string]any{"location": location}}

	case SummarizePDF:
		if m := reSummarize.FindStringSubmatch(clause); m != nil {
			return Match{Intent: SummarizePDF, Params: map[string]any{"file": m[1]}}
		}
		return Match{Intent: SummarizePDF, Params: map[string]any{"query": clause}}

	default:
		return Match{Intent: LLMChat, Params: map[string]any{"query": clause}}
	}
}
