// Package normalize 把用户输入的问题转换为精确匹配使用的规范键。
//
// 规则刻意保持简单：去掉首尾空白、转小写、把连续空白压缩为一个空格、去掉问号前的空白。
// 不处理其他标点和重音符号。
package normalize

import (
	"strings"
	"unicode"
)

// Question 返回 text 的规范键。任何输入都合法，空串的规范键是空串。
func Question(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), unicode.IsSpace)
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, f := range fields {
		if i > 0 && !strings.HasPrefix(f, "?") {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	return b.String()
}
