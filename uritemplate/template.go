// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uritemplate

import (
	"cmp"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ComponentType identifies how a template component is matched.
type ComponentType uint8

const (
	// Literal components match their text verbatim.
	Literal ComponentType = iota
	// DefaultRegex components match a non-empty run of bytes up to the next '/'.
	DefaultRegex
	// CustomRegex components are matched by a compiled regular expression.
	CustomRegex
)

// String returns the component type name.
func (t ComponentType) String() string {
	switch t {
	case Literal:
		return "LITERAL"
	case DefaultRegex:
		return "DEFAULT_REGEX"
	case CustomRegex:
		return "CUSTOM_REGEX"
	default:
		return "ComponentType(" + strconv.Itoa(int(t)) + ")"
	}
}

// defaultSegmentRegex matches one path segment, non-greedy so literal text
// following the placeholder in the same segment can still match.
const defaultSegmentRegex = `[^/]+?`

// scanner states
const (
	stateLiteral = iota
	stateName
	stateRegex
)

// Component is one compiled part of a template.
//
// For Literal components LiteralText holds the text. For DefaultRegex
// components Name holds the parameter name. The trailing CustomRegex
// component holds the merged Pattern and the parameter names it captures,
// in declaration order, in Names.
type Component struct {
	Type        ComponentType
	LiteralText string
	Name        string
	Pattern     *regexp.Regexp
	Names       []string

	// anchored is Pattern prefixed with '^', used for matching at an offset.
	anchored *regexp.Regexp
	// groups holds, for each entry of Names, its submatch index in anchored.
	groups []int
}

// ParamNames returns the parameter names captured by the component.
func (c *Component) ParamNames() []string {
	switch c.Type {
	case DefaultRegex:
		return []string{c.Name}
	case CustomRegex:
		return c.Names
	default:
		return nil
	}
}

// MatchAt matches a CustomRegex component against path starting exactly at pos.
// On success it returns the end offset of the match and, for each entry of
// Names, the [start, end) offsets of the captured value within path. An
// unmatched optional group is reported as -1, -1.
func (c *Component) MatchAt(path string, pos int) (end int, spans []int, ok bool) {
	if c.anchored == nil || pos > len(path) {
		return 0, nil, false
	}
	loc := c.anchored.FindStringSubmatchIndex(path[pos:])
	if loc == nil {
		return 0, nil, false
	}
	spans = make([]int, 0, 2*len(c.groups))
	for _, g := range c.groups {
		s, e := loc[2*g], loc[2*g+1]
		if s < 0 {
			spans = append(spans, -1, -1)
			continue
		}
		spans = append(spans, s+pos, e+pos)
	}
	return loc[1] + pos, spans, true
}

// String returns a short description of the component.
func (c *Component) String() string {
	switch c.Type {
	case Literal:
		return fmt.Sprintf("%s(%q)", c.Type, c.LiteralText)
	case DefaultRegex:
		return fmt.Sprintf("%s(%s)", c.Type, c.Name)
	default:
		return fmt.Sprintf("%s(%s %v)", c.Type, c.Pattern, c.Names)
	}
}

// Template is a compiled path template.
type Template struct {
	template              string
	stem                  string
	literalCharacterCount int
	capturingGroups       int
	complexExpressions    int
	components            []Component
	prefixMatch           bool
}

// New compiles template. The template is normalized to start with '/'.
//
// When prefixMatch is true the template may match a leading part of a path,
// as used for resource class paths and sub-resource locators; the merged
// regular expression is then left unanchored at its end.
//
// Errors:
//   - [ErrUnclosedBrace] if a '{' is not closed
//   - [ErrEmptyParamName] if a placeholder has no name
//   - [ErrInvalidRegex] if a user regular expression does not compile
func New(template string, prefixMatch bool) (*Template, error) {
	if !strings.HasPrefix(template, "/") {
		template = "/" + template
	}

	t := &Template{
		template:    template,
		prefixMatch: prefixMatch,
	}

	components := make([]Component, 0, 4)
	var sb strings.Builder
	state := stateLiteral
	bracesCount := 0
	name := ""
	stemSet := false

	addLiteral := func() {
		if sb.Len() == 0 {
			return
		}
		literal := sb.String()
		if !stemSet {
			t.stem = literal
			stemSet = true
		}
		components = append(components, Component{Type: Literal, LiteralText: literal})
	}

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch state {
		case stateLiteral:
			if c == '{' {
				addLiteral()
				sb.Reset()
				state = stateName
				continue
			}
			sb.WriteByte(c)
			t.literalCharacterCount++

		case stateName:
			switch c {
			case '}':
				paramName := strings.TrimSpace(sb.String())
				if paramName == "" {
					return nil, fmt.Errorf("%w: %s", ErrEmptyParamName, template)
				}
				if i+1 == len(template) || template[i+1] == '/' {
					components = append(components, Component{Type: DefaultRegex, Name: paramName})
				} else {
					components = append(components, Component{
						Type:        CustomRegex,
						LiteralText: defaultSegmentRegex,
						Name:        paramName,
					})
				}
				t.capturingGroups++
				sb.Reset()
				state = stateLiteral
			case ':':
				name = strings.TrimSpace(sb.String())
				if name == "" {
					return nil, fmt.Errorf("%w: %s", ErrEmptyParamName, template)
				}
				sb.Reset()
				state = stateRegex
			default:
				sb.WriteByte(c)
			}

		case stateRegex:
			switch c {
			case '}':
				if bracesCount > 0 {
					bracesCount--
					sb.WriteByte(c)
					continue
				}
				components = append(components, Component{
					Type:        CustomRegex,
					LiteralText: strings.TrimSpace(sb.String()),
					Name:        name,
				})
				t.capturingGroups++
				t.complexExpressions++
				sb.Reset()
				state = stateLiteral
			case '{':
				bracesCount++
				sb.WriteByte(c)
			default:
				sb.WriteByte(c)
			}
		}
	}

	if state != stateLiteral || bracesCount != 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnclosedBrace, template)
	}
	addLiteral()

	coalesced, err := coalesce(components, prefixMatch)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRegex, template, err)
	}
	t.components = coalesced

	return t, nil
}

// MustNew is like [New] but panics if the template cannot be compiled.
func MustNew(template string, prefixMatch bool) *Template {
	t, err := New(template, prefixMatch)
	if err != nil {
		panic("uritemplate.MustNew: " + err.Error())
	}
	return t
}

// coalesce merges the first CustomRegex component and everything after it
// into a single CustomRegex component with one compiled pattern.
//
// Parameter groups are unnamed and located by position: a parameter's group
// index is one past every group opened before it, including the groups of
// earlier user regexes. Names inside user regexes never take part.
func coalesce(components []Component, prefixMatch bool) ([]Component, error) {
	first := -1
	for i := range components {
		if components[i].Type == CustomRegex {
			first = i
			break
		}
	}
	if first < 0 {
		return components, nil
	}

	var sb strings.Builder
	names := make([]string, 0, len(components)-first)
	groups := make([]int, 0, len(components)-first)
	next := 1
	for _, c := range components[first:] {
		switch c.Type {
		case Literal:
			sb.WriteString(regexp.QuoteMeta(c.LiteralText))
		case DefaultRegex:
			sb.WriteString("(" + defaultSegmentRegex + ")")
			names = append(names, c.Name)
			groups = append(groups, next)
			next++
		case CustomRegex:
			user, err := regexp.Compile(c.LiteralText)
			if err != nil {
				return nil, err
			}
			sb.WriteString("(" + c.LiteralText + ")")
			names = append(names, c.Name)
			groups = append(groups, next)
			next += 1 + user.NumSubexp()
		}
	}
	if !prefixMatch {
		sb.WriteByte('$')
	}

	src := sb.String()
	pattern, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	anchored, err := regexp.Compile("^(?:" + src + ")")
	if err != nil {
		return nil, err
	}
	if anchored.NumSubexp() != next-1 {
		return nil, fmt.Errorf("regex groups escape their placeholder in %q", src)
	}

	result := make([]Component, first, first+1)
	copy(result, components[:first])
	result = append(result, Component{
		Type:     CustomRegex,
		Pattern:  pattern,
		Names:    names,
		anchored: anchored,
		groups:   groups,
	})
	return result, nil
}

// Template returns the normalized template text.
func (t *Template) Template() string { return t.template }

// String returns the normalized template text.
func (t *Template) String() string { return t.template }

// Stem returns the literal prefix before the first placeholder, or the whole
// template when it has no placeholders.
func (t *Template) Stem() string { return t.stem }

// LiteralCharacterCount returns the number of characters outside placeholders.
func (t *Template) LiteralCharacterCount() int { return t.literalCharacterCount }

// CapturingGroups returns the number of placeholders.
func (t *Template) CapturingGroups() int { return t.capturingGroups }

// ComplexExpressions returns the number of "{name:regex}" placeholders.
func (t *Template) ComplexExpressions() int { return t.complexExpressions }

// PrefixMatch reports whether the template was compiled for prefix matching.
func (t *Template) PrefixMatch() bool { return t.prefixMatch }

// Components returns the compiled components. The first component is always
// the Literal stem. The returned slice must not be modified.
func (t *Template) Components() []Component { return t.components }

// CountPathParamNames returns the number of parameters the template captures.
func (t *Template) CountPathParamNames() int {
	n := 0
	for i := range t.components {
		n += len(t.components[i].ParamNames())
	}
	return n
}

// ParamNames returns the parameter names in declaration order.
func (t *Template) ParamNames() []string {
	names := make([]string, 0, t.capturingGroups)
	for i := range t.components {
		names = append(names, t.components[i].ParamNames()...)
	}
	return names
}

// Compare orders templates for matching; a negative result means a is tried
// before b. Keys, in order:
//
//  1. stem, lexicographically
//  2. literal character count, descending (more literal text is more specific)
//  3. capturing groups, ascending
//  4. complex expressions, ascending
//  5. template text, lexicographically
//
// Key 2 is sometimes stated as ascending. It is descending here:
// candidates are tried in order and the first match wins, so the template
// with more literal text has to come first for "more literal text is tried
// first" to hold. Swapping it would let "/items/{id}" be tried before
// "/items/{id}/detail".
func Compare(a, b *Template) int {
	if c := strings.Compare(a.stem, b.stem); c != 0 {
		return c
	}
	if c := cmp.Compare(b.literalCharacterCount, a.literalCharacterCount); c != 0 {
		return c
	}
	if c := cmp.Compare(a.capturingGroups, b.capturingGroups); c != 0 {
		return c
	}
	if c := cmp.Compare(a.complexExpressions, b.complexExpressions); c != 0 {
		return c
	}
	return strings.Compare(a.template, b.template)
}

// Dump writes a description of the template to w, indented by level.
func (t *Template) Dump(w io.Writer, level int) {
	indent := strings.Repeat("  ", level)
	_, _ = fmt.Fprintf(w, "%s%s (stem=%q literals=%d groups=%d regex=%d prefix=%t)\n",
		indent, t.template, t.stem, t.literalCharacterCount, t.capturingGroups, t.complexExpressions, t.prefixMatch)
	for i := range t.components {
		_, _ = fmt.Fprintf(w, "%s  %s\n", indent, t.components[i].String())
	}
}
