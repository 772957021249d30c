package codec

import (
	"strconv"
	"strings"
)

// parseFlagWords validates flag words against the type's allowlist and ORs
// their bits together.
func parseFlagWords(words, allowed []string) (FieldFlag, error) {
	var flags FieldFlag
	for _, w := range words {
		w = strings.ToUpper(w)
		ok := false
		for _, a := range allowed {
			if w == a {
				ok = true
				break
			}
		}
		if !ok {
			return 0, specErrorf("flag %q not allowed here (allowed: %s)", w, strings.Join(allowed, " "))
		}
		bit, known := FlagWord(w)
		if !known {
			return 0, specErrorf("unknown field flag %q", w)
		}
		flags |= bit
	}
	return flags, nil
}

// specCharacter parses "C(n)" with a dialect-specific exclusive ceiling
// (256 for dBase III, 255 for FoxPro, 65519 for Clipper).
func specCharacter(ceiling int) SpecFunc {
	return func(args string, words, allowed []string) (int, int, FieldFlag, error) {
		length, err := parenInt(args)
		if err != nil {
			return 0, 0, 0, specErrorf("format for Character field creation is C(n), not C%s", args)
		}
		if !(0 < length && length < ceiling) {
			return 0, 0, 0, specErrorf("character fields must be between 1 and %d, not %d", ceiling-1, length)
		}
		flags, err := parseFlagWords(words, allowed)
		if err != nil {
			return 0, 0, 0, err
		}
		return length, 0, flags, nil
	}
}

// specNumeric parses "N(s,d)"; s is the total width including sign and
// decimal point, d must leave room for at least one integer digit.
func specNumeric() SpecFunc {
	return func(args string, words, allowed []string) (int, int, FieldFlag, error) {
		body, ok := parenBody(args)
		if !ok || !strings.Contains(body, ",") {
			return 0, 0, 0, specErrorf("format for Numeric field creation is N(s,d), not N%s", args)
		}
		parts := strings.SplitN(body, ",", 2)
		length, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		decimals, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return 0, 0, 0, specErrorf("format for Numeric field creation is N(s,d), not N%s", args)
		}
		if !(0 < length && length <= 20) {
			return 0, 0, 0, specErrorf("numeric fields must be between 1 and 20 digits, not %d", length)
		}
		if decimals != 0 && !(0 < decimals && decimals <= length-2) {
			return 0, 0, 0, specErrorf("decimals must be between 0 and length-2 (length: %d, decimals: %d)", length, decimals)
		}
		flags, err := parseFlagWords(words, allowed)
		if err != nil {
			return 0, 0, 0, err
		}
		return length, decimals, flags, nil
	}
}

// specFixed parses the fixed-size types (D, L, M, I, B, Y, T, @), which take
// no parenthesized arguments.
func specFixed(symbol string, length int, implied FieldFlag) SpecFunc {
	return func(args string, words, allowed []string) (int, int, FieldFlag, error) {
		if args != "" {
			return 0, 0, 0, specErrorf("format for %s field creation takes no size, got %s%s", symbol, symbol, args)
		}
		flags, err := parseFlagWords(words, allowed)
		if err != nil {
			return 0, 0, 0, err
		}
		return length, 0, flags | implied, nil
	}
}

func parenBody(args string) (string, bool) {
	if len(args) < 2 || args[0] != '(' || args[len(args)-1] != ')' {
		return "", false
	}
	return args[1 : len(args)-1], true
}

func parenInt(args string) (int, error) {
	body, ok := parenBody(args)
	if !ok {
		return 0, specErrorf("missing parenthesized size in %q", args)
	}
	return strconv.Atoi(strings.TrimSpace(body))
}
