package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/korjavin/quizbot/models"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a quiz id does not resolve
var ErrNotFound = errors.New("quiz not found")

// Catalog is a read-only, ordered set of quizzes
type Catalog struct {
	quizzes []models.Quiz
	byID    map[string]int
}

// New builds a catalog from the given quizzes after validating them
func New(quizzes ...models.Quiz) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(quizzes))}
	for _, q := range quizzes {
		if err := validate(q); err != nil {
			return nil, err
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quiz id %q", q.ID)
		}
		c.byID[q.ID] = len(c.quizzes)
		c.quizzes = append(c.quizzes, q)
	}
	return c, nil
}

// Load reads quizzes from a JSON or YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var quizzes []models.Quiz
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &quizzes)
	default:
		err = json.Unmarshal(data, &quizzes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range quizzes {
		quizzes[i].Level = models.Level(strings.ToUpper(string(quizzes[i].Level)))
	}
	return New(quizzes...)
}

// Find returns the quiz with the given id
func (c *Catalog) Find(id string) (models.Quiz, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Quiz{}, fmt.Errorf("find %q: %w", id, ErrNotFound)
	}
	return c.quizzes[i], nil
}

// List returns quizzes in catalog order, only those of level when it is non-nil
func (c *Catalog) List(level *models.Level) []models.Quiz {
	result := make([]models.Quiz, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		if level != nil && q.Level != *level {
			continue
		}
		result = append(result, q)
	}
	return result
}

// Len is the number of quizzes in the catalog
func (c *Catalog) Len() int {
	return len(c.quizzes)
}

func validate(q models.Quiz) error {
	if strings.TrimSpace(q.ID) == "" {
		return errors.New("quiz id is required")
	}
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("quiz %q: title is required", q.ID)
	}
	if !q.Level.Valid() {
		return fmt.Errorf("quiz %q: unknown level %q", q.ID, q.Level)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("quiz %q: no questions", q.ID)
	}
	for i, question := range q.Questions {
		if len(question.Alternatives) < 2 {
			return fmt.Errorf("quiz %q question %d: need at least 2 alternatives", q.ID, i)
		}
		if question.Correct < 0 || question.Correct >= len(question.Alternatives) {
			return fmt.Errorf("quiz %q question %d: correct alternative %d out of range", q.ID, i, question.Correct)
		}
	}
	return nil
}
