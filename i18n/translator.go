package i18n

// Translator retrieves localized messages for FieldError kinds.
// data provides optional metadata to embed in the message (for example,
// "expected" or "constraint").
type Translator interface {
	Message(kind string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(kind string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch kind {
		case "missing_required":
			return "必須フィールドが不足しています"
		case "type_error":
			return "型が不正です"
		case "constraint_violation":
			return "制約に違反しています"
		case "custom":
			return "検証に失敗しました"
		case "model_rejection":
			return "レコードが拒否されました"
		case "unknown_field":
			return "未知のフィールドです"
		}
	default: // "en"
		switch kind {
		case "missing_required":
			return "required field missing"
		case "type_error":
			return "invalid type"
		case "constraint_violation":
			return "constraint violated"
		case "custom":
			return "validation failed"
		case "model_rejection":
			return "record rejected"
		case "unknown_field":
			return "unknown field"
		}
	}
	return kind
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given kind using the current Translator.
func T(kind string, data map[string]string) string { return currentTranslator.Message(kind, data) }
