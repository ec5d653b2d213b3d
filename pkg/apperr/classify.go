package apperr

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
)

// FallbackMessage はどの抽出にも失敗した場合に返す既定のメッセージです。
const FallbackMessage = "An unexpected error occurred. Please try again later."

// extractor は失敗値から利用者向けメッセージを取り出す試みです。
type extractor func(v any) (string, bool)

// chain は先頭から順に試し、最初に成功したものを採用します。
var chain = []extractor{
	jsonMessage,
	errorMessage,
	nestedMessage,
	rawString,
}

// Classify は様々な形の失敗値を、利用者に表示できる1つのメッセージに正規化します。
func Classify(v any) string {
	if v == nil {
		return FallbackMessage
	}
	for _, ex := range chain {
		if msg, ok := ex(v); ok {
			return msg
		}
	}
	return FallbackMessage
}

// jsonMessage は {"error":{"message":"..."}} 形式の JSON 文字列から入れ子のメッセージを取り出します。
func jsonMessage(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case error:
		s = x.Error()
	default:
		return "", false
	}

	if i := strings.Index(s, "{"); i >= 0 {
		s = s[i:]
	} else {
		return "", false
	}

	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&body); err != nil {
		return "", false
	}
	return nonEmpty(body.Error.Message)
}

// errorMessage はネイティブな error のメッセージを返します。
// apperr.Error の場合は原因を含まない利用者向けメッセージを優先します。
func errorMessage(v any) (string, bool) {
	err, ok := v.(error)
	if !ok {
		return "", false
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message, true
	}
	return nonEmpty(err.Error())
}

// nestedMessage は Message フィールドや message キーを直接持つ値からメッセージを取り出します。
func nestedMessage(v any) (string, bool) {
	switch x := v.(type) {
	case map[string]any:
		if m, ok := x["message"].(string); ok {
			return nonEmpty(m)
		}
		if inner, ok := x["error"].(map[string]any); ok {
			if m, ok := inner["message"].(string); ok {
				return nonEmpty(m)
			}
		}
		return "", false
	case map[string]string:
		return nonEmpty(x["message"])
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", false
	}
	f := rv.FieldByName("Message")
	if !f.IsValid() || f.Kind() != reflect.String {
		return "", false
	}
	return nonEmpty(f.String())
}

// rawString は文字列値そのものを返します。
func rawString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return nonEmpty(s)
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
