package migration

import (
	"bytes"
	"encoding/json"
)

// Variant は1日分レコード内のフィールドの形を表すタグ。
// 形だけで判定し、バージョン番号は持たない。
type Variant int

const (
	// Unrecognized は解釈できない形。値はそのまま残す。
	Unrecognized Variant = iota
	// LegacyScalarThought は morningThought / dailyIdea の単一文字列。
	LegacyScalarThought
	// LegacyThoughtList は morningThoughts / dailyIdeas の {id,text,timestamp} 配列。
	LegacyThoughtList
	// ModernThoughtList は thoughts のオブジェクト配列。
	ModernThoughtList
	// LegacyMustDoStrings は mustDo の文字列配列。
	LegacyMustDoStrings
	// LegacyMustDoItems は mustDo の {id,text,completed,order} 配列。
	LegacyMustDoItems
	// ModernTodoList は todos のオブジェクト配列。
	ModernTodoList
)

func (v Variant) String() string {
	switch v {
	case LegacyScalarThought:
		return "legacy_scalar_thought"
	case LegacyThoughtList:
		return "legacy_thought_list"
	case ModernThoughtList:
		return "modern_thought_list"
	case LegacyMustDoStrings:
		return "legacy_must_do_strings"
	case LegacyMustDoItems:
		return "legacy_must_do_items"
	case ModernTodoList:
		return "modern_todo_list"
	default:
		return "unrecognized"
	}
}

// 日付レコード内で形を判定するキー。
const (
	keyMorningThought  = "morningThought"
	keyDailyIdea       = "dailyIdea"
	keyMorningThoughts = "morningThoughts"
	keyDailyIdeas      = "dailyIdeas"
	keyThoughts        = "thoughts"
	keyMustDo          = "mustDo"
	keyTodos           = "todos"
	keyDailyReport     = "dailyReport"
)

// classify はキーと値の形からVariantを決める。
func classify(key string, raw json.RawMessage) Variant {
	switch key {
	case keyMorningThought, keyDailyIdea:
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return LegacyScalarThought
		}
	case keyMorningThoughts, keyDailyIdeas:
		if isObjectArray(raw) {
			return LegacyThoughtList
		}
	case keyThoughts:
		if isObjectArray(raw) {
			return ModernThoughtList
		}
	case keyMustDo:
		if isStringArray(raw) {
			return LegacyMustDoStrings
		}
		if isObjectArray(raw) {
			return LegacyMustDoItems
		}
	case keyTodos:
		if isObjectArray(raw) {
			return ModernTodoList
		}
	}
	return Unrecognized
}

// isObjectArray は要素がすべてJSONオブジェクトの配列かを返す。空配列も含む。
func isObjectArray(raw json.RawMessage) bool {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return false
	}
	for _, e := range elems {
		if !bytes.HasPrefix(bytes.TrimSpace(e), []byte("{")) {
			return false
		}
	}
	return true
}

// isStringArray は要素がすべて文字列の空でない配列かを返す。
func isStringArray(raw json.RawMessage) bool {
	var elems []string
	return json.Unmarshal(raw, &elems) == nil && len(elems) > 0
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
