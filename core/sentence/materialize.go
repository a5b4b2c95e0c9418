package sentence

import (
	"fmt"

	"github.com/FocuswithJustin/xmlinput/core/annotation"
	"github.com/FocuswithJustin/xmlinput/core/config"
	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/reorder"
	"github.com/FocuswithJustin/xmlinput/core/vocab"
)

// Reserved element names. Any other element requests a forced translation.
const (
	TagWall        = "wall"
	TagZone        = "zone"
	TagPlaceholder = "ne"
)

// materialize applies annotations to the sentence under construction in
// document order. Walls and zones go to c, placeholders overwrite a factor
// of words in place, and every other element becomes a forced translation.
// The first failing annotation aborts the whole sentence.
func materialize(
	anns []annotation.Annotation,
	tokens []string,
	words []vocab.Word,
	c *reorder.Constraint,
	v *vocab.Collection,
	in *config.InputConfig,
) ([]ForcedTranslation, error) {
	var forced []ForcedTranslation

	for _, a := range anns {
		switch a.Tag {
		case TagWall:
			// <wall/> before token n separates tokens n-1 and n.
			if a.Start == 0 || a.Start-1 >= len(tokens) {
				return nil, errors.NewConstraintRange(TagWall, a.Start-1, len(tokens))
			}
			if err := c.SetWall(a.Start - 1); err != nil {
				return nil, err
			}

		case TagZone:
			if err := c.SetZone(a.Start, a.End()-1); err != nil {
				return nil, err
			}

		case TagPlaceholder:
			if err := substitute(a, words, v, in); err != nil {
				return nil, err
			}

		default:
			forced = append(forced, ForcedTranslation{
				Start:          a.Start,
				Length:         a.Length,
				Translation:    a.Translation,
				HasTranslation: a.HasTranslation,
				Prob:           a.Prob,
			})
		}
	}
	return forced, nil
}

// substitute replaces the placeholder factor of the single word covered
// by an <ne> annotation with the interned entity text.
func substitute(a annotation.Annotation, words []vocab.Word, v *vocab.Collection, in *config.InputConfig) error {
	slot, ok := in.PlaceholderSlot()
	if !ok {
		return errors.NewConfiguration("placeholder_factor_slot",
			"placeholder markup in input requires a placeholder factor slot")
	}
	if a.Length != 1 {
		return errors.NewConstraintShape(TagPlaceholder, a.Start, a.Length, 1)
	}
	if !a.HasEntity {
		return &errors.ValidationError{
			Field:   annotation.AttrEntity,
			Message: fmt.Sprintf("<%s> at %d has no %s attribute", TagPlaceholder, a.Start, annotation.AttrEntity),
		}
	}

	w := words[a.Start]
	if slot < 0 || slot >= len(w) {
		return errors.NewConfiguration("placeholder_factor_slot",
			fmt.Sprintf("slot %d outside the %d factor slots of a word", slot, len(w)))
	}
	w[slot] = v.Add(a.Entity)
	return nil
}
