package inject

import "strings"

// sendKeysSpecial: символы, которые SendKeys трактует как модификаторы и группировку.
const sendKeysSpecial = "+^%~(){}[]"

// EscapeSendKeys экранирует текст для System.Windows.Forms.SendKeys:
// каждый служебный символ заключается в фигурные скобки.
func EscapeSendKeys(s string) string {
	if !strings.ContainsAny(s, sendKeysSpecial) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(sendKeysSpecial, r) {
			b.WriteByte('{')
			b.WriteRune(r)
			b.WriteByte('}')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quotePowerShell возвращает строку в одинарных кавычках. PowerShell считает
// кавычками и типографские ‘ ’ ‚ ‛, их тоже удваиваем.
func quotePowerShell(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '‘', '’', '‚', '‛':
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// quoteAppleScript возвращает строковый литерал AppleScript.
func quoteAppleScript(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
