package sentence

import (
	"encoding/json"

	"github.com/FocuswithJustin/xmlinput/core/annotation"
	"github.com/FocuswithJustin/xmlinput/core/reorder"
)

// View is a serializable snapshot of a sentence.
type View struct {
	Path               Path                    `json:"path"`
	Tokens             []string                `json:"tokens"`
	Words              []string                `json:"words"`
	MaxDistortion      int                     `json:"max_distortion"`
	Walls              []int                   `json:"walls"`
	Zones              []reorder.Zone          `json:"zones"`
	ForcedTranslations []ForcedTranslation     `json:"forced_translations"`
	Annotations        []annotation.Annotation `json:"annotations,omitempty"`
}

// View returns a snapshot of s. Slices are never nil so that the JSON
// form always carries arrays.
func (s *Sentence) View() View {
	words := make([]string, len(s.words))
	for i, w := range s.words {
		words[i] = w.String()
	}
	walls := s.constraint.Walls()
	if walls == nil {
		walls = []int{}
	}
	return View{
		Path:               s.path,
		Tokens:             s.Tokens(),
		Words:              words,
		MaxDistortion:      s.constraint.MaxDistortion(),
		Walls:              walls,
		Zones:              s.constraint.Zones(),
		ForcedTranslations: s.ForcedTranslations(),
		Annotations:        s.Annotations(),
	}
}

// MarshalJSON encodes the sentence as its View.
func (s *Sentence) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}
