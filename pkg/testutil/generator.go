// Package testutil provides deterministic catalogue fixtures and assertions
// shared by the package tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/reqdb/pkg/model"
)

// GeneratorConfig controls catalogue generation.
type GeneratorConfig struct {
	Seed         int64    // Random seed for determinism (0 = 42)
	KeyPrefix    string   // Prefix for topic and requirement keys (default: "T")
	Tags         []string // Tag pool; each requirement gets a random subset
	ExtraTypes   []model.ExtraType
	EmptyTopics  bool // Allow topics with no requirements
	WithComments bool
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:      42,
		KeyPrefix: "T",
		Tags:      []string{"urgent", "security", "privacy", "ops"},
		ExtraTypes: []model.ExtraType{
			{ID: 1, Title: "Notes", ExtraType: model.ExtraPlaintext},
			{ID: 2, Title: "Guidance", ExtraType: model.ExtraMarkdown},
			{ID: 3, Title: "Controls", ExtraType: model.ExtraBadges},
		},
	}
}

// Generator creates catalogue fixtures with various shapes.
type Generator struct {
	cfg     GeneratorConfig
	rng     *rand.Rand
	topicID int
	reqID   int
	extraID int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "T"
	}
	return &Generator{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		topicID: 0,
		reqID:   1000,
	}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Tree creates a catalogue whose topic forest has `breadth` top-level topics,
// each nested `depth` levels deep with `breadth` children per topic. Every
// topic gets between 0 (when EmptyTopics) or 1 and maxReqs requirements.
func (g *Generator) Tree(depth, breadth, maxReqs int) *model.Catalogue {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}
	if maxReqs < 1 {
		maxReqs = 1
	}

	cat := &model.Catalogue{
		ID:          1,
		Title:       fmt.Sprintf("Generated catalogue d=%d b=%d", depth, breadth),
		Description: "Deterministic fixture",
	}
	for i := 0; i < breadth; i++ {
		cat.Topics = append(cat.Topics, g.topic(nil, fmt.Sprintf("%s%d", g.cfg.KeyPrefix, i+1), depth, breadth, maxReqs))
	}
	for _, name := range g.cfg.Tags {
		cat.Tags = append(cat.Tags, model.Tag{ID: tagID(g.cfg.Tags, name), Name: name})
	}
	return cat
}

func (g *Generator) topic(parent *int, key string, depth, breadth, maxReqs int) *model.Topic {
	g.topicID++
	t := &model.Topic{
		ID:          g.topicID,
		Key:         key,
		Title:       "Topic " + key,
		Description: "About " + key,
		ParentID:    parent,
	}

	lo := 1
	if g.cfg.EmptyTopics {
		lo = 0
	}
	n := lo + g.rng.Intn(maxReqs-lo+1)
	for i := 0; i < n; i++ {
		t.Requirements = append(t.Requirements, g.requirement(t.ID, fmt.Sprintf("%s-R%d", key, i+1)))
	}

	if depth > 1 {
		id := t.ID
		for i := 0; i < breadth; i++ {
			t.Children = append(t.Children, g.topic(&id, fmt.Sprintf("%s.%d", key, i+1), depth-1, breadth, maxReqs))
		}
	}
	return t
}

func (g *Generator) requirement(topicID int, key string) *model.Requirement {
	g.reqID++
	r := &model.Requirement{
		ID:          g.reqID,
		Key:         key,
		Title:       "Requirement " + key,
		Description: "The system shall satisfy " + key + ".",
		ParentID:    topicID,
		Visible:     true,
	}
	for _, name := range g.cfg.Tags {
		if g.rng.Intn(3) == 0 {
			r.Tags = append(r.Tags, model.Tag{ID: tagID(g.cfg.Tags, name), Name: name})
		}
	}
	for i := range g.cfg.ExtraTypes {
		if g.rng.Intn(2) == 0 {
			continue
		}
		et := g.cfg.ExtraTypes[i]
		g.extraID++
		r.Extras = append(r.Extras, model.Extra{
			ID:            g.extraID,
			Content:       extraContent(et.ExtraType, key),
			ExtraTypeID:   et.ID,
			RequirementID: r.ID,
			ExtraType:     &et,
		})
	}
	if g.cfg.WithComments && g.rng.Intn(2) == 0 {
		r.Comments = []model.Comment{{
			ID:            r.ID,
			Comment:       "Check " + key,
			RequirementID: r.ID,
			Created:       1735732800,
		}}
	}
	return r
}

func extraContent(kind model.ExtraKind, key string) string {
	switch kind {
	case model.ExtraBadges:
		return "ISO-27001;" + key
	case model.ExtraMarkdown:
		return "**" + key + "** guidance"
	default:
		return "note for " + key
	}
}

func tagID(pool []string, name string) int {
	for i, n := range pool {
		if n == name {
			return i + 1
		}
	}
	return 0
}

// Worked example ids.
const (
	TopicA = 1
	TopicB = 2
	TopicC = 3
	ReqR1  = 101
	ReqR2  = 102
)

// WorkedExample returns the catalogue used throughout the tests: topic A
// (no requirements) containing topic B with R1, and sibling topic C with R2.
// Only R2 is tagged "urgent".
func WorkedExample() *model.Catalogue {
	a := TopicA
	return &model.Catalogue{
		ID:          7,
		Title:       "Worked Example",
		Description: "Catalogue for tests",
		Topics: []*model.Topic{
			{
				ID: TopicA, Key: "A", Title: "Topic A", Description: "Parent topic",
				Children: []*model.Topic{
					{
						ID: TopicB, Key: "B", Title: "Topic B", ParentID: &a,
						Requirements: []*model.Requirement{
							{ID: ReqR1, Key: "R1", Title: "First", Description: "R1 text", ParentID: TopicB, Visible: true},
						},
					},
				},
			},
			{
				ID: TopicC, Key: "C", Title: "Topic C", Description: "Sibling topic",
				Requirements: []*model.Requirement{
					{
						ID: ReqR2, Key: "R2", Title: "Second", Description: "R2 text", ParentID: TopicC, Visible: true,
						Tags: []model.Tag{{ID: 1, Name: "urgent"}},
						Extras: []model.Extra{{
							ID: 1, Content: "Use MFA", ExtraTypeID: 2, RequirementID: ReqR2,
							ExtraType: &model.ExtraType{ID: 2, Title: "Guidance", ExtraType: model.ExtraMarkdown},
						}},
						Comments: []model.Comment{{ID: 1, Comment: "ok?", RequirementID: ReqR2}},
					},
				},
			},
		},
		Tags: []model.Tag{{ID: 1, Name: "urgent"}},
	}
}

// Empty returns a catalogue without topics.
func Empty() *model.Catalogue {
	return &model.Catalogue{ID: 1, Title: "Empty"}
}

// QuickTree generates a tree with the default config.
func QuickTree(depth, breadth, maxReqs int) *model.Catalogue {
	return NewDefault().Tree(depth, breadth, maxReqs)
}
