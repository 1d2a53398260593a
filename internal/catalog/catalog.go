// Package catalog loads the riddle catalog and checks that it can be played
// in order.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Question is one riddle with its progressive hints.
type Question struct {
	ID     int      `yaml:"id" json:"id" validate:"gt=0"`
	Prompt string   `yaml:"question" json:"question" validate:"required"`
	Hints  []string `yaml:"hints" json:"hints" validate:"dive,required"`
	Answer string   `yaml:"answer" json:"-" validate:"required"`
}

// Reward is revealed once every question is answered.
type Reward struct {
	Title    string          `yaml:"title" json:"title" validate:"required"`
	Message  string          `yaml:"message" json:"message"`
	Sections []RewardSection `yaml:"sections" json:"sections" validate:"dive"`
}

// RewardSection groups reward details under a heading.
type RewardSection struct {
	Heading string   `yaml:"heading" json:"heading" validate:"required"`
	Items   []string `yaml:"items" json:"items" validate:"dive,required"`
}

// Catalog is the immutable, ordered list of riddles.
type Catalog struct {
	TotalQuestions int        `yaml:"total_questions" json:"total_questions" validate:"gte=0"`
	Questions      []Question `yaml:"questions" json:"questions" validate:"required,min=1,dive"`
	Reward         Reward     `yaml:"reward" json:"reward"`

	byID map[int]int
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.TotalQuestions == 0 {
		c.TotalQuestions = len(c.Questions)
	}
	if c.Reward.Title == "" {
		c.Reward.Title = defaultRewardTitle
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	c.index()
	return &c, nil
}

const defaultRewardTitle = "¡Felicitaciones!"

func (c *Catalog) index() {
	c.byID = make(map[int]int, len(c.Questions))
	for i, q := range c.Questions {
		c.byID[q.ID] = i
	}
}

// Question looks up a riddle by id.
func (c *Catalog) Question(id int) (Question, bool) {
	if c.byID == nil {
		c.index()
	}
	i, ok := c.byID[id]
	if !ok {
		return Question{}, false
	}
	return c.Questions[i], true
}

// FirstID is the id a fresh game starts on.
func (c *Catalog) FirstID() int {
	return c.Questions[0].ID
}

// Total is the number of riddles required to finish the game.
func (c *Catalog) Total() int {
	return c.TotalQuestions
}
