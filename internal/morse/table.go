package morse

// WordSeparator is the code emitted for a space between words.
const WordSeparator = "/"

// Symbol pairs a character with its code.
type Symbol struct {
	Char string `json:"char"`
	Code string `json:"code"`
}

// alphabet lists the International Morse Code table in display order.
var alphabet = []Symbol{
	// Letters
	{"A", ".-"},
	{"B", "-..."},
	{"C", "-.-."},
	{"D", "-.."},
	{"E", "."},
	{"F", "..-."},
	{"G", "--."},
	{"H", "...."},
	{"I", ".."},
	{"J", ".---"},
	{"K", "-.-"},
	{"L", ".-.."},
	{"M", "--"},
	{"N", "-."},
	{"O", "---"},
	{"P", ".--."},
	{"Q", "--.-"},
	{"R", ".-."},
	{"S", "..."},
	{"T", "-"},
	{"U", "..-"},
	{"V", "...-"},
	{"W", ".--"},
	{"X", "-..-"},
	{"Y", "-.--"},
	{"Z", "--.."},

	// Numbers
	{"0", "-----"},
	{"1", ".----"},
	{"2", "..---"},
	{"3", "...--"},
	{"4", "....-"},
	{"5", "....."},
	{"6", "-...."},
	{"7", "--..."},
	{"8", "---.."},
	{"9", "----."},

	// Punctuation
	{".", ".-.-.-"},
	{",", "--..--"},
	{"?", "..--.."},
	{"'", ".----."},
	{"!", "-.-.--"},
	{"/", "-..-."},
	{"(", "-.--."},
	{")", "-.--.-"},
	{"&", ".-..."},
	{":", "---..."},
	{";", "-.-.-."},
	{"=", "-...-"},
	{"+", ".-.-."},
	{"-", "-....-"},
	{"_", "..--.-"},
	{"\"", ".-..-."},
	{"$", "...-..-"},
	{"@", ".--.-."},

	{" ", WordSeparator},
}

var (
	charToCode = buildForward(alphabet)
	codeToChar = invert(charToCode)
)

func buildForward(symbols []Symbol) map[rune]string {
	m := make(map[rune]string, len(symbols))
	for _, s := range symbols {
		m[[]rune(s.Char)[0]] = s.Code
	}
	return m
}

// invert swaps keys and values. A code shared by two characters keeps
// whichever pair is visited last.
func invert(forward map[rune]string) map[string]rune {
	m := make(map[string]rune, len(forward))
	for char, code := range forward {
		m[code] = char
	}
	return m
}

// Alphabet returns a copy of the canonical table.
func Alphabet() []Symbol {
	out := make([]Symbol, len(alphabet))
	copy(out, alphabet)
	return out
}

// CodeFor looks up the code for an uppercase character.
func CodeFor(char rune) (string, bool) {
	code, ok := charToCode[char]
	return code, ok
}

// CharFor looks up the character a code stands for.
func CharFor(code string) (rune, bool) {
	char, ok := codeToChar[code]
	return char, ok
}
