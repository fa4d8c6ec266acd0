package lessons

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tokenRx    = regexp.MustCompile(`[^\s,;/|()]+|[,;/|()]`)
	surnameRx  = regexp.MustCompile(`^[А-ЯЁ][а-яё]+(?:-[А-ЯЁ][а-яё]+)?$`)
	dottedInRx = regexp.MustCompile(`^[А-ЯЁ]\.(?:[А-ЯЁ]\.?){0,2}$`)
	bareInRx   = regexp.MustCompile(`^[А-ЯЁ]$`)

	spaceRx    = regexp.MustCompile(`\s{2,}`)
	beforeRx   = regexp.MustCompile(`\s+([,;)])`)
	openRx     = regexp.MustCompile(`\(\s+`)
	emptyPRx   = regexp.MustCompile(`\(\s*\)`)
	repeatSepX = regexp.MustCompile(`([,;/|])(?:\s*[,;/|])+`)
)

var titles = map[string]struct{}{
	"проф": {}, "профессор": {}, "доц": {}, "доцент": {}, "асс": {}, "ассистент": {},
	"ст": {}, "старший": {}, "зав": {}, "каф": {},
	"к.т.н": {}, "д.т.н": {}, "к.х.н": {}, "д.х.н": {}, "к.ф.-м.н": {}, "д.ф.-м.н": {},
	"к.э.н": {}, "д.э.н": {}, "к.п.н": {}, "д.п.н": {}, "к.б.н": {}, "к.филол.н": {},
}

var roles = map[string]struct{}{
	"лек": {}, "лектор": {}, "практ": {}, "лаб": {}, "сем": {}, "семинарист": {},
	"преп": {}, "преподаватель": {}, "ведет": {}, "ведёт": {}, "учитель": {},
}

type token struct {
	raw  string
	core string
	sep  bool
	used bool
}

type teacher struct {
	surname string
	inits   []string
}

func (t teacher) String() string {
	if len(t.inits) == 0 {
		return t.surname
	}
	return t.surname + " " + strings.Join(t.inits, ".") + "."
}

// ParseSubject splits a lecture cell into the subject title and the teacher
// names found in it. Recognized forms: "Иванов И.И.", "И.И. Иванов",
// "Иванов И.", "лек. Иванов", "преп. Иванов Иван Иванович". Academic titles
// next to a name are dropped. Teachers sharing surname and first initial
// collapse into the variant with more initials.
func ParseSubject(text string) (string, []string) {
	toks := tokenize(text)

	var found []teacher
	for i := 0; i < len(toks); {
		t, start, end, ok := matchTeacher(toks, i)
		if !ok {
			i++
			continue
		}
		for k := start; k < end; k++ {
			toks[k].used = true
		}
		for k := start - 1; k >= 0 && isTitle(toks[k]); k-- {
			toks[k].used = true
		}
		found = append(found, t)
		i = end
	}

	return rebuild(toks), dedupe(found)
}

func tokenize(text string) []token {
	parts := tokenRx.FindAllString(text, -1)
	toks := make([]token, 0, len(parts))
	for _, p := range parts {
		if utf8.RuneCountInString(p) == 1 && strings.ContainsAny(p, ",;/|()") {
			toks = append(toks, token{raw: p, sep: true})
			continue
		}
		toks = append(toks, token{raw: p, core: strings.Trim(p, `:"«»`)})
	}
	return toks
}

func matchTeacher(toks []token, i int) (teacher, int, int, bool) {
	tok := toks[i]
	if tok.sep {
		return teacher{}, 0, 0, false
	}

	if isSurname(tok) {
		if inits, next := initialsAt(toks, i+1, true); len(inits) > 0 {
			// "Химия И.И. Петров": the leading word is the subject when a
			// surname without own initials follows.
			if i == 0 && next < len(toks) && isSurname(toks[next]) {
				if more, _ := initialsAt(toks, next+1, true); len(more) == 0 {
					return teacher{surname: toks[next].core, inits: inits}, i + 1, next + 1, true
				}
			}
			return teacher{surname: tok.core, inits: inits}, i, next, true
		}
	}

	if inits, next := initialsAt(toks, i, false); len(inits) > 0 && next < len(toks) && isSurname(toks[next]) {
		return teacher{surname: toks[next].core, inits: inits}, i, next + 1, true
	}

	if isRole(tok) {
		j := i + 1
		if j >= len(toks) || !isSurname(toks[j]) {
			return teacher{}, 0, 0, false
		}
		if inits, next := initialsAt(toks, j+1, true); len(inits) > 0 {
			return teacher{surname: toks[j].core, inits: inits}, j, next, true
		}
		if j+2 < len(toks) && isSurname(toks[j+1]) && isSurname(toks[j+2]) {
			inits := []string{firstLetter(toks[j+1].core), firstLetter(toks[j+2].core)}
			return teacher{surname: toks[j].core, inits: inits}, i, j + 3, true
		}
		return teacher{surname: toks[j].core}, i, j + 1, true
	}

	return teacher{}, 0, 0, false
}

// initialsAt collects up to three initials starting at toks[i]. A single
// letter without a dot is accepted only right after a surname.
func initialsAt(toks []token, i int, allowBare bool) ([]string, int) {
	var letters []string
	j := i
	for j < len(toks) && len(letters) < 3 {
		t := toks[j]
		if t.sep {
			break
		}
		switch {
		case dottedInRx.MatchString(t.core):
			ls := strings.Split(strings.ReplaceAll(t.core, ".", " "), " ")
			var add []string
			for _, l := range ls {
				if l != "" {
					add = append(add, l)
				}
			}
			if len(letters)+len(add) > 3 {
				return letters, j
			}
			letters = append(letters, add...)
		case allowBare && len(letters) == 0 && bareInRx.MatchString(t.core):
			letters = append(letters, t.core)
			return letters, j + 1
		default:
			return letters, j
		}
		j++
	}
	return letters, j
}

func isSurname(t token) bool {
	if t.sep || !surnameRx.MatchString(t.core) {
		return false
	}
	key := strings.ToLower(t.core)
	_, title := titles[key]
	_, role := roles[key]
	return !title && !role
}

func isRole(t token) bool {
	if t.sep {
		return false
	}
	_, ok := roles[strings.TrimSuffix(strings.ToLower(t.core), ".")]
	return ok
}

func isTitle(t token) bool {
	if t.sep {
		return false
	}
	_, ok := titles[strings.TrimSuffix(strings.ToLower(t.core), ".")]
	return ok
}

func firstLetter(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}

func rebuild(toks []token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if !t.used {
			parts = append(parts, t.raw)
		}
	}

	s := strings.Join(parts, " ")
	s = emptyPRx.ReplaceAllString(s, "")
	s = beforeRx.ReplaceAllString(s, "$1")
	s = openRx.ReplaceAllString(s, "(")
	s = repeatSepX.ReplaceAllString(s, "$1")
	s = spaceRx.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,;:/|-")
}

func dedupe(ts []teacher) []string {
	type key struct{ surname, initial string }

	var order []key
	best := make(map[key]teacher)
	for _, t := range ts {
		k := key{surname: strings.ToLower(t.surname)}
		if len(t.inits) > 0 {
			k.initial = t.inits[0]
		}
		cur, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = t
			continue
		}
		if len(t.inits) > len(cur.inits) ||
			(len(t.inits) == len(cur.inits) && len(t.String()) > len(cur.String())) {
			best[k] = t
		}
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, best[k].String())
	}
	return out
}
