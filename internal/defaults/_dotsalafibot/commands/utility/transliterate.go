package utility

import (
	"context"
	"errors"
	"strings"
)

var Data = map[string]any{
	"name":        "transliterate",
	"description": "Transliterates Arabic into English text with phonetics.",
	"options": []any{
		map[string]any{
			"type":        3,
			"name":        "text",
			"description": "The text to transliterate",
			"required":    true,
		},
	},
}

var letters = map[rune]string{
	'ا': "a", 'أ': "a", 'إ': "i", 'آ': "aa", 'ب': "b", 'ت': "t", 'ث': "th",
	'ج': "j", 'ح': "h", 'خ': "kh", 'د': "d", 'ذ': "dh", 'ر': "r", 'ز': "z",
	'س': "s", 'ش': "sh", 'ص': "s", 'ض': "d", 'ط': "t", 'ظ': "z", 'ع': "'",
	'غ': "gh", 'ف': "f", 'ق': "q", 'ك': "k", 'ل': "l", 'م': "m", 'ن': "n",
	'ه': "h", 'ة': "h", 'و': "w", 'ي': "y", 'ى': "a", 'ء': "'",
	'َ': "a", 'ُ': "u", 'ِ': "i", 'ً': "an", 'ٌ': "un", 'ٍ': "in", 'ْ': "",
}

func Execute(ctx context.Context, inv map[string]string) (string, error) {
	text := strings.TrimSpace(inv["text"])
	if text == "" {
		return "", errors.New("text is required")
	}
	var b strings.Builder
	for _, r := range text {
		if s, ok := letters[r]; ok {
			b.WriteString(s)
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}
