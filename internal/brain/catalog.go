package brain

// Tool and function catalogs advertised to the model. Descriptions are part
// of the prompt surface: the model picks targets by name, so renaming an
// entry here changes what decisions come back.

var toolCatalog = map[string]string{
	"perplexity_search": "Advanced web search using the Perplexity app.",
	"search_files":      "Search for files by name, content, or pattern.",
	"read_file":         "Read aloud the contents of a file.",
	"edit_text":         "Edit the contents of a text file.",
	"move_files":        "Move or copy files to a new location.",
	"summarize_pdf":     "Summarize the contents of a PDF file.",
	"launch_app":        "Launch an application by name.",
	"system_tools":      "Access system information and utilities.",
}

var functionCatalog = map[string]string{
	"get_current_time":       "Get the current system time.",
	"get_current_date":       "Get the current system date.",
	"get_battery_percentage": "Get the current battery percentage.",
	"get_cpu_usage":          "Get the current CPU usage.",
	"get_ram_usage":          "Get the current RAM usage.",
	"get_clipboard":          "Get the current clipboard contents.",
	"set_clipboard":          "Set the clipboard contents.",
	"open_url":               "Open a URL in the default browser.",
	"get_weather":            "Get the current weather information.",
	"get_random_joke":        "Get a random joke.",
}

// possibleOutputs is the closed set of decision kinds shown to the model.
var possibleOutputs = []string{
	"tool_call",
	"function_call",
	"direct_response",
	"plan_mode",
}
