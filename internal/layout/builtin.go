package layout

// qwerty is the US QWERTY reference layout. Physical keys are named by
// their own glyphs, so the table is the identity over the Latin alphabet.
func qwerty() *Layout {
	keys := make(map[rune]rune, 26)
	for c := 'a'; c <= 'z'; c++ {
		keys[c] = c
	}
	return New(LangEnglish, keys)
}

// jcuken is the standard Russian ЙЦУКЕН layout. Note that six Cyrillic
// letters live on QWERTY punctuation keys, which is exactly why mistyped
// Russian words grow stray brackets and semicolons under a US layout.
func jcuken() *Layout {
	return New(LangRussian, map[rune]rune{
		'q': 'й', 'w': 'ц', 'e': 'у', 'r': 'к', 't': 'е', 'y': 'н',
		'u': 'г', 'i': 'ш', 'o': 'щ', 'p': 'з', '[': 'х', ']': 'ъ',
		'a': 'ф', 's': 'ы', 'd': 'в', 'f': 'а', 'g': 'п', 'h': 'р',
		'j': 'о', 'k': 'л', 'l': 'д', ';': 'ж', '\'': 'э',
		'z': 'я', 'x': 'ч', 'c': 'с', 'v': 'м', 'b': 'и', 'n': 'т',
		'm': 'ь', ',': 'б', '.': 'ю', '`': 'ё',
	})
}
