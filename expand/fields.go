package expand

import (
	"fmt"
	"strconv"

	"github.com/luckboy/rsush-sub000/ifs"
	"github.com/luckboy/rsush-sub000/pattern"
	"github.com/luckboy/rsush-sub000/syntax"
)

// CommandRunner executes a command substitution's command list and
// returns its captured stdout, trailing newlines stripped (the rule
// every POSIX shell applies to $(...) and `...`). Supplied by interp,
// which owns process spawning; expand only needs the captured text.
type CommandRunner func(cmds []*syntax.LogicalCommand) (string, error)

// Expander turns syntax.Word values into shell field text, bundling the
// variable environment and the command-substitution callback together.
type Expander struct {
	Env *Environ
	Run CommandRunner
}

// chunk is one piece of a word's expanded text, tagged with whether it
// came from inside quotes — quoted text never participates in IFS
// splitting or pathname generation.
type chunk struct {
	text   string
	quoted bool
}

// Literal expands w to a single string, ignoring field splitting — the
// form used for assignment values, here-doc delimiters already resolved
// by the parser, and anywhere else POSIX treats the word as one field.
func (x *Expander) Literal(w *syntax.Word) (string, error) {
	chunks, err := x.expand(w)
	if err != nil {
		return "", err
	}
	var out string
	for _, c := range chunks {
		out += c.text
	}
	return out, nil
}

// Fields expands w into its post-IFS-splitting fields: unquoted
// expansions are subject to splitting, literal and quoted text is
// not.
func (x *Expander) Fields(w *syntax.Word) ([]string, error) {
	chunks, err := x.expand(w)
	if err != nil {
		return nil, err
	}
	return splitChunks(chunks, x.Env.IFS()), nil
}

// ExpandWords expands each word and concatenates their resulting
// fields, the step the interpreter applies to a SimpleCommand's word
// list before exec.
func (x *Expander) ExpandWords(words []*syntax.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		fs, err := x.Fields(w)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

func (x *Expander) expand(w *syntax.Word) ([]chunk, error) {
	var out []chunk
	for _, elem := range w.Elems {
		switch e := elem.(type) {
		case *syntax.Simple:
			s, err := x.simple(e.Elem)
			if err != nil {
				return nil, err
			}
			out = append(out, chunk{text: s, quoted: false})
		case *syntax.SingleQuoted:
			out = append(out, chunk{text: e.Value, quoted: true})
		case *syntax.DoubleQuoted:
			var s string
			for _, part := range e.Parts {
				v, err := x.simple(part)
				if err != nil {
					return nil, err
				}
				s += v
			}
			out = append(out, chunk{text: s, quoted: true})
		}
	}
	return out, nil
}

func (x *Expander) simple(e syntax.SimpleWordElement) (string, error) {
	switch e := e.(type) {
	case *syntax.StringLit:
		return e.Value, nil
	case *syntax.ParamExp:
		return x.paramExp(e)
	case *syntax.ParamLength:
		return strconv.Itoa(len([]rune(x.paramValue(e.Name)))), nil
	case *syntax.CommandSubstitution:
		if x.Run == nil {
			return "", fmt.Errorf("command substitution unsupported in this context")
		}
		return x.Run(e.Commands)
	case *syntax.ArithmeticSubstitution:
		n, err := Arithm(x.Env, e.Expr)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	}
	return "", nil
}

// Parts expands a sequence of simple word elements, the form a
// substitution-capable here-document body is stored as, concatenating
// each element's expansion the same way a double-quoted word's parts
// are joined.
func (x *Expander) Parts(parts []syntax.SimpleWordElement) (string, error) {
	var s string
	for _, part := range parts {
		v, err := x.simple(part)
		if err != nil {
			return "", err
		}
		s += v
	}
	return s, nil
}

func (x *Expander) paramValue(name syntax.ParameterName) string {
	return paramValue(x.Env, name)
}

func (x *Expander) paramExp(e *syntax.ParamExp) (string, error) {
	val := x.paramValue(e.Name)
	isSet := x.isSet(e.Name)
	if e.Mod == nil {
		return val, nil
	}
	useAlt := isSet
	if e.Mod.Colon {
		useAlt = isSet && val != ""
	}
	switch e.Mod.Kind {
	case syntax.ModUseDefault:
		if useAlt {
			return val, nil
		}
		return x.modWord(e.Mod.Word)
	case syntax.ModAssignDefault:
		if useAlt {
			return val, nil
		}
		def, err := x.modWord(e.Mod.Word)
		if err != nil {
			return "", err
		}
		if name, ok := e.Name.(syntax.VarName); ok {
			if serr := x.Env.Set(string(name), def); serr != nil {
				return "", serr
			}
		}
		return def, nil
	case syntax.ModErrorIfUnset:
		if useAlt {
			return val, nil
		}
		msg, err := x.modWord(e.Mod.Word)
		if err != nil {
			return "", err
		}
		if msg == "" {
			msg = "parameter null or not set"
		}
		return "", fmt.Errorf("%s: %s", e.Name.String(), msg)
	case syntax.ModUseAlternative:
		if !useAlt {
			return "", nil
		}
		return x.modWord(e.Mod.Word)
	case syntax.ModRemoveSmallestPrefix, syntax.ModRemoveLargestPrefix,
		syntax.ModRemoveSmallestSuffix, syntax.ModRemoveLargestSuffix:
		pat, err := x.modWord(e.Mod.Word)
		if err != nil {
			return "", err
		}
		return trimByPattern(val, pat, e.Mod.Kind)
	}
	return val, nil
}

func (x *Expander) modWord(w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	return x.Literal(w)
}

func (x *Expander) isSet(name syntax.ParameterName) bool {
	switch n := name.(type) {
	case syntax.VarName:
		return x.Env.Get(string(n)).Set
	case syntax.Positional:
		return int(n) >= 1 && int(n) <= len(x.Env.Positional)
	case syntax.Special:
		return true
	}
	return false
}

// trimByPattern implements the ${X#pat}/${X##pat}/${X%pat}/${X%%pat}
// family: find the shortest ("smallest") or longest ("largest")
// prefix/suffix of val that matches pat as a whole, and remove it.
func trimByPattern(val, pat string, kind syntax.ParamModKind) (string, error) {
	if pat == "" {
		return val, nil
	}
	re, err := pattern.Compile(pat)
	if err != nil {
		return "", err
	}
	runes := []rune(val)
	n := len(runes)
	switch kind {
	case syntax.ModRemoveSmallestPrefix:
		for i := 0; i <= n; i++ {
			if re.MatchString(string(runes[:i])) {
				return string(runes[i:]), nil
			}
		}
	case syntax.ModRemoveLargestPrefix:
		for i := n; i >= 0; i-- {
			if re.MatchString(string(runes[:i])) {
				return string(runes[i:]), nil
			}
		}
	case syntax.ModRemoveSmallestSuffix:
		for i := n; i >= 0; i-- {
			if re.MatchString(string(runes[i:])) {
				return string(runes[:i]), nil
			}
		}
	case syntax.ModRemoveLargestSuffix:
		for i := 0; i <= n; i++ {
			if re.MatchString(string(runes[i:])) {
				return string(runes[:i]), nil
			}
		}
	}
	return val, nil
}

// splitChunks applies IFS splitting across a word's chunks, treating
// quoted chunks as opaque (never split, never contributing a delimiter)
// while unquoted chunks are split and their boundary pieces merged with
// neighboring quoted/unquoted text, matching how POSIX word splitting
// only ever acts on the unquoted portions of a word.
func splitChunks(chunks []chunk, delims string) []string {
	if len(chunks) == 0 {
		return nil
	}
	var fields []string
	var cur string
	haveCur := false
	flush := func() {
		fields = append(fields, cur)
		cur = ""
		haveCur = false
	}
	for _, c := range chunks {
		if c.quoted {
			cur += c.text
			haveCur = true
			continue
		}
		parts := ifs.Split(c.text, delims)
		if len(parts) == 0 {
			// Either c.text was empty, or it was consumed entirely by
			// whitespace-only IFS delimiters (e.g. an expanded variable
			// whose value is pure whitespace): in both cases it
			// contributes nothing and does not end the current field,
			// matching "runs of whitespace are consumed silently".
			continue
		}
		cur += parts[0]
		haveCur = true
		for _, p := range parts[1:] {
			flush()
			cur = p
			haveCur = true
		}
	}
	if haveCur || len(fields) == 0 {
		fields = append(fields, cur)
	}
	return fields
}
