package tools

// JSON Schema property helpers for tool definitions.

// String describes a string property.
func String(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// StringEnum describes a string property restricted to the given values.
func StringEnum(description string, values ...string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// Number describes a number property.
func Number(description string) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
	}
}

// Integer describes an integer property.
func Integer(description string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": description,
	}
}

// StringArray describes an array-of-strings property.
func StringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}
