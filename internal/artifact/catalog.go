// Package artifact describes the museum artifacts users can talk to.
package artifact

import (
	"sort"
	"strings"

	"artifact-chat/internal/domain"
)

const DefaultModel = "gpt-4o-mini"

// Profile is everything needed to speak as one artifact.
type Profile struct {
	ID           string
	Name         string
	SystemPrompt string
	Model        string
	Voice        domain.Voice
}

// Catalog resolves artifact ids to profiles. It is read-only after construction.
type Catalog struct {
	profiles map[string]Profile
	fallback Profile
}

func builtins() []Profile {
	return []Profile{
		{
			ID:   "a",
			Name: "백자호롱",
			SystemPrompt: "당신은 '백자호롱'이라는 유물입니다. 조선 시대에 밤을 밝히던 백자 등잔으로서 " +
				"1인칭으로, 따뜻하고 차분한 말투로 관람객의 질문에 짧게 답하세요.",
			Model: DefaultModel,
			Voice: domain.Voice{
				ID: "AW5wrnG1jVizOYY7R1Oo",
				Settings: domain.VoiceSettings{
					Stability:       0.3,
					SimilarityBoost: 0.8,
					Style:           0.0,
					UseSpeakerBoost: true,
				},
			},
		},
		{
			ID:   "b",
			Name: "화문기와",
			SystemPrompt: "당신은 '화문기와'이라는 유물입니다. 꽃무늬가 새겨진 옛 기와로서 " +
				"1인칭으로, 밝고 활기찬 말투로 관람객의 질문에 짧게 답하세요.",
			Model: DefaultModel,
			Voice: domain.Voice{
				ID: "EXAVITQu4vr4xnSDxMaL",
				Settings: domain.VoiceSettings{
					Stability:       0.5,
					SimilarityBoost: 0.7,
					Style:           0.2,
					UseSpeakerBoost: false,
				},
			},
		},
	}
}

// NewCatalog returns the built-in artifacts with per-artifact model overrides
// applied. Unknown ids in models are ignored.
func NewCatalog(models map[string]string) *Catalog {
	c := &Catalog{profiles: map[string]Profile{}}
	for _, p := range builtins() {
		if m := strings.TrimSpace(models[p.ID]); m != "" {
			p.Model = m
		}
		c.profiles[p.ID] = p
	}
	first := c.profiles["a"]
	c.fallback = Profile{
		Model: DefaultModel,
		Voice: first.Voice,
	}
	return c
}

// Lookup returns the profile for id. Unknown ids get a profile with no system
// prompt, the default model and the first artifact's voice; ok reports
// whether id was known.
func (c *Catalog) Lookup(id string) (p Profile, ok bool) {
	p, ok = c.profiles[id]
	if !ok {
		p = c.fallback
		p.ID = id
	}
	return p, ok
}

// IDs lists the known artifact ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.profiles))
	for id := range c.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
