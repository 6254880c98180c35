package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Reduce 将存储变更差异 {key: {newValue, oldValue}} 应用到快照，返回新快照与发生变化的键。
// 原快照不被修改；缺少 newValue 的键恢复为默认值；未知键与值未变的键被忽略。
func Reduce(s Snapshot, diff string) (Snapshot, []string, error) {
	if !gjson.Valid(diff) {
		return s, nil, fmt.Errorf("invalid settings diff")
	}
	doc, err := json.Marshal(s)
	if err != nil {
		return s, nil, err
	}
	var defaults []byte
	var changed []string
	var patchErr error
	gjson.Parse(diff).ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if !slices.Contains(Keys, k) {
			return true
		}
		raw := value.Get("newValue").Raw
		if raw == "" {
			if defaults == nil {
				defaults, _ = json.Marshal(Default())
			}
			raw = gjson.GetBytes(defaults, k).Raw
			if raw == "" {
				raw = "null"
			}
		}
		if sameJSON(gjson.GetBytes(doc, k).Raw, raw) {
			return true
		}
		doc, patchErr = sjson.SetRawBytes(doc, k, []byte(raw))
		if patchErr != nil {
			return false
		}
		changed = append(changed, k)
		return true
	})
	if patchErr != nil {
		return s, nil, patchErr
	}
	if len(changed) == 0 {
		return s, nil, nil
	}
	var next Snapshot
	if err := json.Unmarshal(doc, &next); err != nil {
		return s, nil, fmt.Errorf("apply settings diff: %w", err)
	}
	return next, changed, nil
}

// Decode 从完整 JSON 文档构造快照，缺失字段使用默认值
func Decode(doc []byte) (Snapshot, error) {
	s := Default()
	if len(doc) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(doc, &s); err != nil {
		return Default(), fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func sameJSON(a, b string) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, []byte(a)) != nil || json.Compact(&cb, []byte(b)) != nil {
		return a == b
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
