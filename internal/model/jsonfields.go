package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// RawFields は型付きフィールドとして解釈できなかったJSONプロパティを保持する。
// 未知のキーや、既知のキーでも形が合わない値はここに残り、書き戻し時にそのまま出力される。
type RawFields map[string]json.RawMessage

// Has は指定キーが保持されているかを返す。
func (f RawFields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Clone はRawFieldsのコピーを返す。
func (f RawFields) Clone() RawFields {
	if f == nil {
		return nil
	}
	out := make(RawFields, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Without は指定キーを除いたコピーを返す。空になった場合はnil。
func (f RawFields) Without(keys ...string) RawFields {
	out := f.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Shelve は指定キーの値を "<key>_legacy" へ移したコピーを返す。空になった場合はnil。
// 型付きフィールドに書き込んだ値が、同じキーに残った解釈できない値で上書きされないようにする。
// 移動先が使用中の場合は "<key>_legacy2" 以降の空いているキーを使う。
func (f RawFields) Shelve(keys ...string) RawFields {
	out := f.Clone()
	for _, k := range keys {
		v, ok := out[k]
		if !ok {
			continue
		}
		delete(out, k)
		dst := k + "_legacy"
		for n := 2; out.Has(dst); n++ {
			dst = fmt.Sprintf("%s_legacy%d", k, n)
		}
		out[dst] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// objectFields はJSONオブジェクトをキーごとの生メッセージに分解する。
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected JSON object, got null")
	}
	return obj, nil
}

// takeField はobjのkeyをdstにデコードする。
// 成功した場合はobjからキーを取り除き、失敗した場合は生のまま残す。
// null は未設定として扱う。
func takeField(obj map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := obj[key]
	if !ok {
		return false
	}
	if isNull(raw) {
		delete(obj, key)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		reflect.ValueOf(dst).Elem().SetZero()
		return false
	}
	delete(obj, key)
	return true
}

// leftover は取り込めなかったキーをRawFieldsとして返す。空ならnil。
func leftover(obj map[string]json.RawMessage) RawFields {
	if len(obj) == 0 {
		return nil
	}
	return RawFields(obj)
}

// encodeObject は既知フィールドと保持フィールドを1つのJSONオブジェクトにまとめる。
// 同じキーが両方にある場合は保持フィールドを優先する。型付きの値を出力したい場合は先にShelveで退避する。
func encodeObject(known map[string]any, extra RawFields) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(known)+len(extra))
	for k, v := range known {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		out[k] = b
	}
	for k, v := range extra {
		out[k] = v
	}
	return json.Marshal(out)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
