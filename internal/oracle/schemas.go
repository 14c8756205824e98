package oracle

// JSON schemas the oracle responses are validated against.

const classifierSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "change_type": { "type": "string", "enum": ["INTRODUCED", "MODIFIED", "NEED_MORE_CONTEXT"] },
    "reasoning": { "type": "string" },
    "confidence": { "type": "number", "minimum": 0, "maximum": 1 },
    "target_file": { "type": "string" },
    "target_line": { "type": "integer", "minimum": 1 },
    "should_continue": { "type": "boolean" }
  },
  "required": ["change_type", "reasoning", "confidence"]
}`

const verifierSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "verdict": { "type": "string", "enum": ["ACCEPT", "REJECT"] },
    "reason": { "type": "string" },
    "suggestion": { "type": "string" },
    "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
  },
  "required": ["verdict", "reason"]
}`
