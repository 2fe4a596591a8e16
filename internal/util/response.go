package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

// InvalidFields reports a rejected query together with the offending fields.
func InvalidFields(message string, fields []string) Envelope {
	if fields == nil {
		fields = []string{}
	}
	return Envelope{"error": message, "fields": fields}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}
