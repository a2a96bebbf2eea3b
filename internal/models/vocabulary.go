package models

import "fmt"

// Family partitions reason tags into AI indicators and real-photo indicators
type Family string

const (
	FamilyAI   Family = "ai"
	FamilyReal Family = "real"
)

// ReasonTag is one selectable indicator label
type ReasonTag string

// DefaultAIReasons and DefaultRealReasons are the stock vocabularies shown to raters
var (
	DefaultAIReasons = []ReasonTag{
		"Unnatural textures",
		"Illogical shadows",
		"Anatomy issues",
		"Surreal details",
		"Repeating patterns",
	}
	DefaultRealReasons = []ReasonTag{
		"Natural lighting",
		"Real imperfections",
		"Believable context",
		"Texture variation",
		"Consistent depth",
	}
)

// Vocabulary is the closed set of reason tags, split into two disjoint families.
// Tag order within a family is the display order.
type Vocabulary struct {
	ai     []ReasonTag
	real   []ReasonTag
	family map[ReasonTag]Family
}

// NewVocabulary validates that both families are non-empty, free of blanks and disjoint
func NewVocabulary(ai, real []ReasonTag) (*Vocabulary, error) {
	if len(ai) == 0 || len(real) == 0 {
		return nil, fmt.Errorf("%w: both reason families need at least one tag", ErrInvalidConfiguration)
	}

	v := &Vocabulary{
		ai:     append([]ReasonTag(nil), ai...),
		real:   append([]ReasonTag(nil), real...),
		family: make(map[ReasonTag]Family, len(ai)+len(real)),
	}

	for _, group := range []struct {
		f    Family
		tags []ReasonTag
	}{{FamilyAI, ai}, {FamilyReal, real}} {
		for _, tag := range group.tags {
			if tag == "" {
				return nil, fmt.Errorf("%w: empty reason tag in %s family", ErrInvalidConfiguration, group.f)
			}
			if prev, ok := v.family[tag]; ok {
				return nil, fmt.Errorf("%w: reason tag %q listed twice (%s, %s)", ErrInvalidConfiguration, tag, prev, group.f)
			}
			v.family[tag] = group.f
		}
	}

	return v, nil
}

// DefaultVocabulary returns the stock five-and-five vocabulary
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultAIReasons, DefaultRealReasons)
	if err != nil {
		panic(err) // static data
	}
	return v
}

// Tags returns the tags of a family in display order
func (v *Vocabulary) Tags(f Family) []ReasonTag {
	switch f {
	case FamilyAI:
		return append([]ReasonTag(nil), v.ai...)
	case FamilyReal:
		return append([]ReasonTag(nil), v.real...)
	default:
		return nil
	}
}

// FamilyOf returns the family a tag belongs to
func (v *Vocabulary) FamilyOf(tag ReasonTag) (Family, bool) {
	f, ok := v.family[tag]
	return f, ok
}

// Contains reports whether tag belongs to family f
func (v *Vocabulary) Contains(f Family, tag ReasonTag) bool {
	got, ok := v.family[tag]
	return ok && got == f
}
