// Package speech – spoken-text transform.
//
// Before synthesis, chatbot text is rewritten for spoken delivery: symbols
// and chat markup are stripped, monetary amounts, times, phone numbers, and
// small integers become written Portuguese, a few colloquial rewrites are
// applied, and ellipsis pauses are inserted between sentences.
//
// The transform is lossy and must never be applied to text destined for
// text channels. All randomness flows from the seed given to NewSpoken, so
// a fixed seed yields a byte-identical rendering.
package speech

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Spoken rewrites text for voice synthesis. Construct with NewSpoken; the
// zero value panics on use.
type Spoken struct {
	rng *rand.Rand
}

// NewSpoken returns a transform whose probabilistic rewrites draw from a
// PRNG seeded with seed.
func NewSpoken(seed int64) *Spoken {
	return &Spoken{rng: rand.New(rand.NewSource(seed))}
}

// Render applies the full transform pipeline, in order: symbol strip,
// markup strip, number rewriting (money, times, phones, bare integers),
// colloquial rewrites, and ellipsis pauses.
func (s *Spoken) Render(text string) string {
	text = stripSymbols(text)
	text = stripMarkup(text)
	text = rewriteMoney(text)
	text = rewriteTimes(text)
	text = rewritePhones(text)
	text = rewriteBareInts(text)
	text = s.colloquialize(text)
	text = insertPauses(text)
	return collapseSpaces(text)
}

// ---- symbol and markup stripping ----

// keptPunct is the punctuation retained for speech; everything else outside
// letters, digits, and whitespace (emoji included) is dropped.
const keptPunct = ".,;:!?()-'\"$%/+@&ºª°"

func stripSymbols(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(keptPunct, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	boldRE   = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicRE = regexp.MustCompile(`_([^_\n]+)_`)
	strikeRE = regexp.MustCompile(`~([^~\n]+)~`)
)

func stripMarkup(text string) string {
	text = boldRE.ReplaceAllString(text, "$1")
	text = italicRE.ReplaceAllString(text, "$1")
	text = strikeRE.ReplaceAllString(text, "$1")
	return text
}

// ---- number words ----

var unitWords = []string{"", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove"}
var teenWords = []string{"dez", "onze", "doze", "treze", "catorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove"}
var tenWords = []string{"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa"}
var hundredWords = []string{"", "cento", "duzentos", "trezentos", "quatrocentos", "quinhentos", "seiscentos", "setecentos", "oitocentos", "novecentos"}

// intToWords writes 0 ≤ n ≤ 999999 in Portuguese.
func intToWords(n int) string {
	switch {
	case n == 0:
		return "zero"
	case n == 100:
		return "cem"
	case n >= 1000:
		thousands := n / 1000
		rest := n % 1000
		head := "mil"
		if thousands > 1 {
			head = intToWords(thousands) + " mil"
		}
		if rest == 0 {
			return head
		}
		if rest < 100 || rest%100 == 0 {
			return head + " e " + intToWords(rest)
		}
		return head + " " + intToWords(rest)
	}

	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, hundredWords[h])
		n %= 100
	}
	if n >= 20 {
		parts = append(parts, tenWords[n/10])
		n %= 10
	} else if n >= 10 {
		parts = append(parts, teenWords[n-10])
		n = 0
	}
	if n > 0 {
		parts = append(parts, unitWords[n])
	}
	return strings.Join(parts, " e ")
}

// feminine rewrites the leading "um"/"dois" for feminine nouns (horas).
func feminine(words string) string {
	switch {
	case words == "um":
		return "uma"
	case words == "dois":
		return "duas"
	case strings.HasSuffix(words, " e um"):
		return strings.TrimSuffix(words, " e um") + " e uma"
	case strings.HasSuffix(words, " e dois"):
		return strings.TrimSuffix(words, " e dois") + " e duas"
	}
	return words
}

// ---- money ----

// moneyRE matches Brazilian amounts: R$ 25,90 / R$1.250,00 / R$ 100.
var moneyRE = regexp.MustCompile(`R\$\s?(\d{1,3}(?:\.\d{3})*|\d+)(?:,(\d{2}))?`)

func rewriteMoney(text string) string {
	return moneyRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := moneyRE.FindStringSubmatch(m)
		reais, _ := strconv.Atoi(strings.ReplaceAll(sub[1], ".", ""))
		centavos := 0
		if sub[2] != "" {
			centavos, _ = strconv.Atoi(sub[2])
		}
		return moneyToWords(reais, centavos)
	})
}

// moneyToWords renders an amount with singular/plural agreement.
func moneyToWords(reais, centavos int) string {
	var parts []string
	if reais > 0 {
		unit := "reais"
		if reais == 1 {
			unit = "real"
		}
		parts = append(parts, intToWords(reais)+" "+unit)
	}
	if centavos > 0 {
		unit := "centavos"
		if centavos == 1 {
			unit = "centavo"
		}
		parts = append(parts, intToWords(centavos)+" "+unit)
	}
	if len(parts) == 0 {
		return "zero reais"
	}
	return strings.Join(parts, " e ")
}

// ---- times ----

var (
	colonTimeRE = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	hTimeRE     = regexp.MustCompile(`\b(\d{1,2})h(\d{2})?\b`)
	bareHalfRE  = regexp.MustCompile(`(^|\s):30\b`)
)

func rewriteTimes(text string) string {
	text = colonTimeRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := colonTimeRE.FindStringSubmatch(m)
		return clockToWords(sub[1], sub[2])
	})
	text = hTimeRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := hTimeRE.FindStringSubmatch(m)
		return clockToWords(sub[1], sub[2])
	})
	// A bare half-hour fragment reads as "e meia".
	text = bareHalfRE.ReplaceAllString(text, "${1}e meia")
	return text
}

// clockToWords renders an hour and optional minutes ("08"/"30" → "oito e
// trinta", "18"/"" → "dezoito horas").
func clockToWords(hh, mm string) string {
	h, _ := strconv.Atoi(hh)
	hours := feminine(intToWords(h))
	if mm == "" || mm == "00" {
		unit := "horas"
		if h == 1 {
			unit = "hora"
		}
		return hours + " " + unit
	}
	m, _ := strconv.Atoi(mm)
	return hours + " e " + intToWords(m)
}

// ---- phone numbers ----

// phoneRE matches national or country-prefixed digit runs.
var phoneRE = regexp.MustCompile(`\b\d{10,13}\b`)

var digitWords = []string{"zero", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove"}

// rewritePhones spells long digit runs digit by digit, grouped area /
// first half / second half with comma pauses between groups.
func rewritePhones(text string) string {
	return phoneRE.ReplaceAllStringFunc(text, func(m string) string {
		digits := m
		if (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, "55") {
			digits = digits[2:]
		}
		area, rest := digits[:2], digits[2:]
		mid := (len(rest) + 1) / 2
		groups := []string{spellDigits(area), spellDigits(rest[:mid]), spellDigits(rest[mid:])}
		return strings.Join(groups, ", ")
	})
}

func spellDigits(s string) string {
	words := make([]string, 0, len(s))
	for _, r := range s {
		words = append(words, digitWords[r-'0'])
	}
	return strings.Join(words, " ")
}

// ---- bare integers ----

var bareIntRE = regexp.MustCompile(`\b\d{1,3}\b`)

func rewriteBareInts(text string) string {
	return bareIntRE.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 999 {
			return m
		}
		return intToWords(n)
	})
}

// ---- colloquial rewrites ----

var hesitationOpeners = []string{"Olha, ", "Então, ", "Bom, "}
var midFillers = []string{"tipo, ", "sabe, "}

// colloquialize applies the probabilistic informal rewrites. Probabilities
// follow fixed per-rule rates; all draws come from the seeded PRNG so the
// output is reproducible.
func (s *Spoken) colloquialize(text string) string {
	// Hesitation opener, 25%.
	if s.rng.Float64() < 0.25 {
		opener := hesitationOpeners[s.rng.Intn(len(hesitationOpeners))]
		text = opener + lowerFirst(text)
	}
	// Mid-sentence filler after the first comma, 20%.
	if s.rng.Float64() < 0.20 {
		if i := strings.Index(text, ", "); i >= 0 {
			filler := midFillers[s.rng.Intn(len(midFillers))]
			text = text[:i+2] + filler + text[i+2:]
		}
	}
	// você → cê, 40%, once.
	if s.rng.Float64() < 0.40 {
		text = replaceWordOnce(text, "você", "cê", 1)
		text = replaceWordOnce(text, "Você", "Cê", 1)
	}
	// está → tá, 30%, once.
	if s.rng.Float64() < 0.30 {
		text = replaceWordOnce(text, "está", "tá", 1)
		text = replaceWordOnce(text, "Está", "Tá", 1)
	}
	// para → pra, 40% each, up to twice.
	for i := 0; i < 2; i++ {
		if s.rng.Float64() < 0.40 {
			text = replaceWordOnce(text, "para", "pra", 1)
		}
	}
	return text
}

// replaceWordOnce replaces up to n whole-word occurrences of old with new.
// Boundaries are letter-aware so accented words match ("você", "está").
func replaceWordOnce(text, old, new string, n int) string {
	re := regexp.MustCompile(`(^|[^\p{L}])` + regexp.QuoteMeta(old) + `($|[^\p{L}])`)
	count := 0
	return re.ReplaceAllStringFunc(text, func(m string) string {
		if count >= n {
			return m
		}
		count++
		sub := re.FindStringSubmatch(m)
		return sub[1] + new + sub[2]
	})
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// ---- pauses ----

var sentenceEndRE = regexp.MustCompile(`([.!?])(\s+)`)

// insertPauses appends an ellipsis after sentence-terminal punctuation so
// the synthesized voice breathes between sentences.
func insertPauses(text string) string {
	return sentenceEndRE.ReplaceAllString(text, "$1..$2")
}

var multiSpaceRE = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(text string) string {
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(text, " "))
}
